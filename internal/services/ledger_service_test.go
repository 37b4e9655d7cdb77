package services

import (
	"context"
	"path/filepath"
	"testing"

	"moneybags/internal/core"
	"moneybags/internal/storage"
)

func newTestLedger(t *testing.T) (*LedgerService, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewLedgerService(repo, nil), repo
}

func newTestAccount(t *testing.T, repo *storage.SQLiteRepository) *core.Account {
	t.Helper()
	account, err := repo.CreateAccount(context.Background(), "jdoe", "Checking")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func TestRecordTransactionSignInvariant(t *testing.T) {
	ledger, repo := newTestLedger(t)
	account := newTestAccount(t, repo)
	ctx := context.Background()

	saved, err := ledger.RecordTransaction(ctx, core.Transaction{
		AccountID:   account.ID,
		Date:        core.NewDate(2024, 1, 1),
		Description: "Groceries",
		Amount:      core.Money{Cents: 7500},
		Type:        core.Debit,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if saved.Amount.Cents != -7500 {
		t.Errorf("debit of 75 should store -7500, got %d", saved.Amount.Cents)
	}

	stored, err := repo.GetTransaction(ctx, account.ID, saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Amount.Cents != -7500 {
		t.Errorf("persisted amount = %d, want -7500", stored.Amount.Cents)
	}
}

func TestRecordTransactionSyncsTemplate(t *testing.T) {
	ledger, repo := newTestLedger(t)
	account := newTestAccount(t, repo)
	ctx := context.Background()

	_, err := ledger.RecordTransaction(ctx, core.Transaction{
		AccountID:   account.ID,
		Date:        core.NewDate(2024, 1, 1),
		Description: "Netflix",
		Amount:      core.Money{Cents: 1500},
		Type:        core.Debit,
		Recurring:   true,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	template, err := repo.GetTemplate(ctx, account.ID, "netflix", core.Debit)
	if err != nil {
		t.Fatalf("template should exist after recording: %v", err)
	}
	if !template.FrequencyStartDate.Equal(core.NewDate(2024, 1, 1)) {
		t.Errorf("frequency start should anchor to the first occurrence")
	}
	if !template.LastTransactionDate.Equal(core.NewDate(2024, 1, 1)) {
		t.Errorf("last transaction date should match the save")
	}
	if template.Amount.Cents != -1500 {
		t.Errorf("template amount should be the signed amount, got %d", template.Amount.Cents)
	}

	// A non-recurring save leaves no template behind
	_, err = ledger.RecordTransaction(ctx, core.Transaction{
		AccountID:   account.ID,
		Date:        core.NewDate(2024, 1, 2),
		Description: "Coffee",
		Amount:      core.Money{Cents: 450},
		Type:        core.Debit,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := repo.GetTemplate(ctx, account.ID, "coffee", core.Debit); err == nil {
		t.Error("non-recurring transaction must not create a template")
	}
}

func TestUpsertConvergenceThroughService(t *testing.T) {
	ledger, repo := newTestLedger(t)
	account := newTestAccount(t, repo)
	ctx := context.Background()

	for _, date := range []core.Date{core.NewDate(2024, 1, 1), core.NewDate(2024, 2, 1)} {
		_, err := ledger.RecordTransaction(ctx, core.Transaction{
			AccountID:   account.ID,
			Date:        date,
			Description: "Rent",
			Amount:      core.Money{Cents: 120000},
			Type:        core.Debit,
			Recurring:   true,
		})
		if err != nil {
			t.Fatalf("record on %s: %v", date.Format("2006-01-02"), err)
		}
	}

	template, err := repo.GetTemplate(ctx, account.ID, "rent", core.Debit)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if !template.LastTransactionDate.Equal(core.NewDate(2024, 2, 1)) {
		t.Errorf("last transaction date = %s, want the later save",
			template.LastTransactionDate.Format("2006-01-02"))
	}
}

func TestBalance(t *testing.T) {
	ledger, repo := newTestLedger(t)
	account := newTestAccount(t, repo)
	ctx := context.Background()

	entries := []struct {
		desc  string
		cents int64
		kind  core.TransactionType
	}{
		{"Paycheck", 10000, core.Credit},
		{"Refund", 5000, core.Credit},
		{"Groceries", 3000, core.Debit},
	}
	for _, e := range entries {
		_, err := ledger.RecordTransaction(ctx, core.Transaction{
			AccountID:   account.ID,
			Date:        core.NewDate(2024, 1, 1),
			Description: e.desc,
			Amount:      core.Money{Cents: e.cents},
			Type:        e.kind,
		})
		if err != nil {
			t.Fatalf("record %q: %v", e.desc, err)
		}
	}

	summary, err := ledger.Balance(ctx, account.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if summary.Credits.Cents != 15000 {
		t.Errorf("credits = %d, want 15000", summary.Credits.Cents)
	}
	if summary.Debits.Cents != -3000 {
		t.Errorf("debits = %d, want -3000", summary.Debits.Cents)
	}
	if summary.Balance.Cents != 12000 {
		t.Errorf("balance = %d, want 12000", summary.Balance.Cents)
	}
	if summary.Overdrawn() {
		t.Error("positive balance is not overdrawn")
	}
}

func TestTemplateForCreatesLazily(t *testing.T) {
	ledger, repo := newTestLedger(t)
	account := newTestAccount(t, repo)
	ctx := context.Background()

	tx := &core.Transaction{
		AccountID:   account.ID,
		Date:        core.NewDate(2024, 1, 1),
		Description: "Gym",
		Amount:      core.Money{Cents: -4000},
		Type:        core.Debit,
		Recurring:   true,
	}
	if err := repo.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := ledger.TemplateFor(ctx, tx)
	if err != nil {
		t.Fatalf("template for: %v", err)
	}
	second, err := ledger.TemplateFor(ctx, tx)
	if err != nil {
		t.Fatalf("template for: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("TemplateFor must converge on one row, got %d and %d", first.ID, second.ID)
	}
}
