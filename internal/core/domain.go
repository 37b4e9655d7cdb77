package core

import (
	"errors"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

const (
	Credit TransactionType = 1
	Debit  TransactionType = -1
)

type (
	// TransactionType is the polarity of a transaction: Credit (+1) or Debit (-1).
	TransactionType int

	Date struct {
		time.Time
	}

	// Money is a signed amount in cents. The stored sign of a transaction
	// amount always equals abs(amount) * transaction type.
	Money struct {
		Cents int64
	}

	// Account is a named container for transactions, owned by a user.
	// The slug is regenerated from the name on every save.
	Account struct {
		ID        int64
		Name      string
		Slug      string
		Owner     string
		UpdatedAt time.Time
	}

	Transaction struct {
		ID          int64
		AccountID   int64
		Date        Date
		Description string
		Amount      Money
		Type        TransactionType
		Recurring   bool
		Pending     bool
		CheckNo     *int64
		UpdatedAt   time.Time
	}

	// RecurringTransaction tracks the last known state of a recurring
	// series. At most one exists per (account, desc_slug, type).
	RecurringTransaction struct {
		ID                  int64
		AccountID           int64
		Description         string
		DescSlug            string
		Amount              Money
		Type                TransactionType
		Frequency           Frequency
		FrequencyStartDate  Date
		LastTransactionDate Date
		DueDate             Date
		UpdatedAt           time.Time
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyOwner         = errors.New("empty owner")
	ErrMissingFrequency   = errors.New("missing frequency")
	ErrMissingSeriesDates = errors.New("recurring series has no start or last transaction date")
)

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// AddDays returns the date shifted forward by n whole days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Equal reports whether two dates fall on the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.Year() == other.Year() && d.Month() == other.Month() && d.Day() == other.Day()
}

// Later returns the later of d and other.
func (d Date) Later(other Date) Date {
	if other.After(d.Time) {
		return other
	}
	return d
}

func (t TransactionType) Valid() bool {
	return t == Credit || t == Debit
}

func (t TransactionType) String() string {
	if t == Credit {
		return "credit"
	}
	return "debit"
}

// Slugify returns a normalized URL-safe form of s, used as the lookup key
// for account names and recurring series descriptions.
func Slugify(s string) string {
	return slug.Make(s)
}

// Abs returns the magnitude of the amount in cents.
func (m Money) Abs() int64 {
	if m.Cents < 0 {
		return -m.Cents
	}
	return m.Cents
}

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	if len(a.Name) > 255 {
		return errors.New("name too long (max 255 characters)")
	}
	if strings.TrimSpace(a.Owner) == "" {
		return ErrEmptyOwner
	}
	return nil
}

// IsCredit reports whether the transaction adds to the account balance.
func (t Transaction) IsCredit() bool {
	return t.Type > 0
}

// Normalize enforces the sign invariant: the stored amount equals
// abs(amount) * type. It is idempotent, so re-saving an already signed
// transaction does not flip or double-apply the sign.
func (t *Transaction) Normalize() {
	t.Amount = Money{Cents: t.Amount.Abs() * int64(t.Type)}
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 255 {
		return errors.New("description too long (max 255 characters)")
	}
	if t.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

// Validate checks a template for the explicit edit/save path. Unlike the
// lazy upsert, this path requires a frequency so a due date can always be
// computed.
func (rt RecurringTransaction) Validate() error {
	if len(strings.TrimSpace(rt.Description)) == 0 {
		return ErrEmptyDescription
	}
	if rt.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	if !rt.Type.Valid() {
		return ErrInvalidType
	}
	if rt.Frequency == "" {
		return ErrMissingFrequency
	}
	if !rt.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if rt.FrequencyStartDate.IsZero() && rt.LastTransactionDate.IsZero() {
		return ErrMissingSeriesDates
	}
	return nil
}
