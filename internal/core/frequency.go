package core

import "errors"

const (
	Daily     Frequency = "d"
	Weekly    Frequency = "w"
	BiWeekly  Frequency = "b"
	Monthly   Frequency = "m"
	Yearly    Frequency = "y"
	Quarterly Frequency = "q"
)

// Frequency is the single-letter repetition code of a recurring series.
type Frequency string

var ErrInvalidFrequency = errors.New("invalid frequency")

// frequencyOffsets maps each code to its fixed offset in whole days.
// Monthly is 365/12 truncated; no calendar-aware month or year arithmetic
// is done. The approximation is intentional.
var frequencyOffsets = map[Frequency]int{
	Daily:     1,
	Weekly:    7,
	BiWeekly:  14,
	Monthly:   30,
	Yearly:    365,
	Quarterly: 90,
}

func (f Frequency) Valid() bool {
	_, ok := frequencyOffsets[f]
	return ok
}

func (f Frequency) String() string {
	switch f {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case BiWeekly:
		return "bi-weekly"
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	case Quarterly:
		return "quarterly"
	}
	return string(f)
}

// NextDueDate returns the reference date shifted forward by the fixed
// offset for the frequency code.
func NextDueDate(f Frequency, reference Date) (Date, error) {
	offset, ok := frequencyOffsets[f]
	if !ok {
		return Date{}, ErrInvalidFrequency
	}
	if reference.IsZero() {
		return Date{}, ErrMissingSeriesDates
	}
	return reference.AddDays(offset), nil
}

// ComputeDueDate derives the template's due date. The reference is the
// later of the frequency start date and the last transaction date, so the
// due date never regresses behind the most recent realized occurrence.
// When the frequency has not been chosen yet, the due date falls back to
// the start date, then the last transaction date. Fails only when every
// input is unset.
func (rt RecurringTransaction) ComputeDueDate() (Date, error) {
	reference := rt.FrequencyStartDate.Later(rt.LastTransactionDate)
	if due, err := NextDueDate(rt.Frequency, reference); err == nil {
		return due, nil
	}
	if !rt.FrequencyStartDate.IsZero() {
		return rt.FrequencyStartDate, nil
	}
	if !rt.LastTransactionDate.IsZero() {
		return rt.LastTransactionDate, nil
	}
	return Date{}, ErrMissingSeriesDates
}
