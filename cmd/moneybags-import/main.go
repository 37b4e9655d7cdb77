// Command moneybags-import loads transactions from a checkbook-register
// CSV file into an account:
//
//	moneybags-import <owner> <account-slug> <path-to-csv> [date-layout]
//
// The default date layout is 01/02/2006 (mm/dd/yyyy); pass a Go time
// layout as the fourth argument for files that use something else.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"moneybags/internal/config"
	"moneybags/internal/importer"
	"moneybags/internal/log"
	"moneybags/internal/services"
	"moneybags/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent("csv-import")
	log.SetDefault(logger)

	if len(os.Args) < 4 || len(os.Args) > 5 {
		fmt.Fprintf(os.Stderr, "usage: %s <owner> <account-slug> <path-to-csv> [date-layout]\n", os.Args[0])
		os.Exit(2)
	}
	owner := os.Args[1]
	accountSlug := os.Args[2]
	csvPath := os.Args[3]

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	layout := cfg.CSVDateLayout
	if len(os.Args) == 5 {
		layout = os.Args[4]
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()

	account, err := repo.GetAccountBySlug(ctx, owner, accountSlug)
	if errors.Is(err, storage.ErrNotFound) {
		logger.Error("Account not found", "owner", owner, "slug", accountSlug)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("Failed to look up account", "error", err)
		os.Exit(1)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		logger.Error("Failed to open CSV file", "error", err, "path", csvPath)
		os.Exit(1)
	}
	defer f.Close()

	ledger := services.NewLedgerService(repo, nil)
	imp := importer.New(ledger, layout)

	result, err := imp.ImportCSV(ctx, account.ID, f)
	if err != nil {
		logger.Error("Import failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Import finished",
		"account", account.Name,
		"created", result.Created,
		"skipped", result.Skipped)
}
