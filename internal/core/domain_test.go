package core

import "testing"

func TestTransactionNormalize(t *testing.T) {
	tx := Transaction{Amount: Money{Cents: 7500}, Type: Debit}
	tx.Normalize()
	if tx.Amount.Cents != -7500 {
		t.Fatalf("debit of 7500 should store -7500, got %d", tx.Amount.Cents)
	}

	// Re-normalizing an already signed amount must not flip it back
	tx.Normalize()
	if tx.Amount.Cents != -7500 {
		t.Fatalf("normalize is not idempotent, got %d", tx.Amount.Cents)
	}

	credit := Transaction{Amount: Money{Cents: -100}, Type: Credit}
	credit.Normalize()
	if credit.Amount.Cents != 100 {
		t.Fatalf("credit should store a positive amount, got %d", credit.Amount.Cents)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:        NewDate(2024, 1, 1),
		Description: "Netflix",
		Amount:      Money{Cents: 1500},
		Type:        Debit,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Description: "a", Amount: Money{Cents: 1}, Type: Credit}, // zero date
		{Date: NewDate(2024, 1, 1), Description: "", Amount: Money{Cents: 1}, Type: Credit},
		{Date: NewDate(2024, 1, 1), Description: "a", Amount: Money{Cents: 0}, Type: Credit},
		{Date: NewDate(2024, 1, 1), Description: "a", Amount: Money{Cents: 1}, Type: 0},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestRecurringTransactionValidate(t *testing.T) {
	good := RecurringTransaction{
		Description:        "Rent",
		Amount:             Money{Cents: -120000},
		Type:               Debit,
		Frequency:          Monthly,
		FrequencyStartDate: NewDate(2024, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	missingFreq := good
	missingFreq.Frequency = ""
	if err := missingFreq.Validate(); err != ErrMissingFrequency {
		t.Fatalf("expected ErrMissingFrequency, got %v", err)
	}

	badFreq := good
	badFreq.Frequency = "z"
	if err := badFreq.Validate(); err != ErrInvalidFrequency {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}

	noDates := good
	noDates.FrequencyStartDate = Date{}
	noDates.LastTransactionDate = Date{}
	if err := noDates.Validate(); err != ErrMissingSeriesDates {
		t.Fatalf("expected ErrMissingSeriesDates, got %v", err)
	}
}

func TestAccountValidate(t *testing.T) {
	good := Account{Name: "Personal Checking", Owner: "jdoe"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Account{Name: "", Owner: "jdoe"}).Validate(); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := (Account{Name: "Checking", Owner: " "}).Validate(); err == nil {
		t.Fatal("expected error for empty owner")
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, out string
	}{
		{"Personal Checking", "personal-checking"},
		{"Netflix", "netflix"},
		{"Monthly Rent!", "monthly-rent"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.out {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestTransactionTypeString(t *testing.T) {
	if Credit.String() != "credit" || Debit.String() != "debit" {
		t.Fatal("unexpected type names")
	}
	if !Credit.Valid() || !Debit.Valid() || TransactionType(0).Valid() {
		t.Fatal("unexpected type validity")
	}
}
