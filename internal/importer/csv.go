// Package importer loads checkbook-register CSV files into an account as
// pending transactions. Each row carries a date, an optional check number,
// a description, and a debit or credit amount; exactly one of the two
// amount columns must hold a parseable value.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"moneybags/internal/core"
	"moneybags/internal/services"
)

// DefaultDateLayout is mm/dd/yyyy, the usual register export format.
const DefaultDateLayout = "01/02/2006"

var (
	errBothAmounts   = errors.New("both debit and credit populated")
	errNeitherAmount = errors.New("neither debit nor credit parseable")
	errTooFewColumns = errors.New("row has fewer than 5 columns")
)

// Row is one register line: date, check number, description, debit
// amount, credit amount.
type Row struct {
	Date        string
	CheckNo     string
	Description string
	Debit       string
	Credit      string
}

// Result counts the outcome of an import batch.
type Result struct {
	Created int
	Skipped int
}

type Importer struct {
	ledger *services.LedgerService
	layout string
}

func New(ledger *services.LedgerService, dateLayout string) *Importer {
	if dateLayout == "" {
		dateLayout = DefaultDateLayout
	}
	return &Importer{
		ledger: ledger,
		layout: dateLayout,
	}
}

// ImportCSV reads register rows from r and records one pending
// transaction per valid row. Invalid rows are skipped and counted; they
// never abort the batch.
func (i *Importer) ImportCSV(ctx context.Context, accountID int64, r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read csv: %w", err)
		}
		if len(record) < 5 {
			rows = append(rows, Row{}) // counted as skipped below
			continue
		}
		rows = append(rows, Row{
			Date:        record[0],
			CheckNo:     record[1],
			Description: record[2],
			Debit:       record[3],
			Credit:      record[4],
		})
	}

	return i.ImportRows(ctx, accountID, rows)
}

// ImportRows records one pending transaction per valid row.
func (i *Importer) ImportRows(ctx context.Context, accountID int64, rows []Row) (Result, error) {
	var result Result

	for n, row := range rows {
		if _, err := i.importRow(ctx, accountID, row); err != nil {
			result.Skipped++
			slog.WarnContext(ctx, "Skipping import row",
				"row", n+1,
				"description", row.Description,
				"error", err)
			continue
		}
		result.Created++
	}

	slog.InfoContext(ctx, "CSV import complete",
		"account_id", accountID,
		"created", result.Created,
		"skipped", result.Skipped)

	return result, nil
}

func (i *Importer) importRow(ctx context.Context, accountID int64, row Row) (*core.Transaction, error) {
	if row.Date == "" && row.Description == "" {
		return nil, errTooFewColumns
	}

	debit, debitErr := core.ParseAmount(row.Debit)
	credit, creditErr := core.ParseAmount(row.Credit)

	var (
		amount int64
		kind   core.TransactionType
	)
	switch {
	case debitErr == nil && creditErr == nil:
		return nil, errBothAmounts
	case debitErr != nil && creditErr != nil:
		return nil, errNeitherAmount
	case debitErr == nil:
		amount = debit
		kind = core.Debit
	default:
		amount = credit
		kind = core.Credit
	}

	date, err := time.Parse(i.layout, strings.TrimSpace(row.Date))
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", row.Date, err)
	}

	// Non-numeric check numbers become null, matching register exports
	// that leave the column blank or carry markers like "EFT".
	var checkNo *int64
	if n, err := strconv.ParseInt(strings.TrimSpace(row.CheckNo), 10, 64); err == nil {
		checkNo = &n
	}

	return i.ledger.RecordTransaction(ctx, core.Transaction{
		AccountID:   accountID,
		Date:        core.Date{Time: date},
		Description: strings.TrimSpace(row.Description),
		Amount:      core.Money{Cents: amount},
		Type:        kind,
		Pending:     true,
		CheckNo:     checkNo,
	})
}
