package importer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"moneybags/internal/core"
	"moneybags/internal/services"
	"moneybags/internal/storage"
)

func newTestImporter(t *testing.T) (*Importer, *storage.SQLiteRepository, *core.Account) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	account, err := repo.CreateAccount(context.Background(), "jdoe", "Checking")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	ledger := services.NewLedgerService(repo, nil)
	return New(ledger, ""), repo, account
}

func TestImportCSV(t *testing.T) {
	imp, repo, account := newTestImporter(t)
	ctx := context.Background()

	csv := strings.Join([]string{
		`03/01/2024,101,Coffee,$4.50,`,
		`03/02/2024,,Paycheck,,"1,500.00"`,
		`03/03/2024,102,Broken Row,$10.00,$20.00`, // both populated: skipped
		`03/04/2024,,No Amounts,,`,                // neither parses: skipped
		`not-a-date,,Weird Date,$5.00,`,           // bad date: skipped
	}, "\n")

	result, err := imp.ImportCSV(ctx, account.ID, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Created != 2 {
		t.Errorf("created = %d, want 2", result.Created)
	}
	if result.Skipped != 3 {
		t.Errorf("skipped = %d, want 3", result.Skipped)
	}

	transactions, err := repo.ListTransactions(ctx, account.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(transactions))
	}

	// Most recent first: the paycheck, then the coffee debit
	paycheck := transactions[0]
	if paycheck.Type != core.Credit || paycheck.Amount.Cents != 150000 {
		t.Errorf("paycheck = %+v, want credit of 150000 cents", paycheck)
	}
	if paycheck.CheckNo != nil {
		t.Error("blank check column should import as null")
	}

	coffee := transactions[1]
	if coffee.Type != core.Debit || coffee.Amount.Cents != -450 {
		t.Errorf("coffee = %+v, want debit stored as -450 cents", coffee)
	}
	if coffee.CheckNo == nil || *coffee.CheckNo != 101 {
		t.Error("check number 101 should be preserved")
	}
	if !coffee.Pending {
		t.Error("imported transactions are pending")
	}
	if !coffee.Date.Equal(core.NewDate(2024, 3, 1)) {
		t.Errorf("coffee date = %s, want 2024-03-01", coffee.Date.Format("2006-01-02"))
	}
}

func TestImportRowsCustomLayout(t *testing.T) {
	imp, repo, account := newTestImporter(t)
	imp.layout = "2006-01-02"
	ctx := context.Background()

	result, err := imp.ImportRows(ctx, account.ID, []Row{
		{Date: "2024-03-01", Description: "Rent", Debit: "1200"},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Created != 1 || result.Skipped != 0 {
		t.Fatalf("result = %+v, want 1 created", result)
	}

	transactions, err := repo.ListTransactions(ctx, account.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if transactions[0].Amount.Cents != -120000 {
		t.Errorf("rent = %d cents, want -120000", transactions[0].Amount.Cents)
	}
}

func TestImportRowsNeverAborts(t *testing.T) {
	imp, _, account := newTestImporter(t)

	rows := []Row{
		{Date: "03/01/2024", Description: "Good", Debit: "10.00"},
		{Date: "03/02/2024", Description: "Bad", Debit: "x", Credit: "y"},
		{Date: "03/03/2024", Description: "Also Good", Credit: "20.00"},
	}
	result, err := imp.ImportRows(context.Background(), account.ID, rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Created != 2 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 2 created and 1 skipped", result)
	}
}
