package services

import (
	"context"
	"fmt"
	"log/slog"

	"moneybags/internal/core"
	"moneybags/internal/storage"
)

// Materializer turns due recurring templates into concrete transactions.
// It is intended to run once per calendar day from an external scheduler.
type Materializer struct {
	storage *storage.SQLiteRepository
	ledger  *LedgerService
}

func NewMaterializer(storage *storage.SQLiteRepository, ledger *LedgerService) *Materializer {
	return &Materializer{
		storage: storage,
		ledger:  ledger,
	}
}

// MaterializeDue creates a transaction for every template whose due date
// is exactly asOf and returns the transactions it created. Each candidate
// is an independent unit of work: a failure is logged and skipped without
// aborting the rest of the batch.
//
// Running it twice for the same date is a no-op on the second pass: the
// duplicate guard skips candidates that already exist, and recording a
// materialized transaction resyncs its template, which is what rolls the
// due date forward. The engine never writes a due date itself.
func (m *Materializer) MaterializeDue(ctx context.Context, asOf core.Date) ([]core.Transaction, error) {
	if m.storage == nil || m.ledger == nil {
		return nil, fmt.Errorf("materializer not properly initialized")
	}

	templates, err := m.storage.ListTemplatesDueOn(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("list due templates: %w", err)
	}

	slog.InfoContext(ctx, "Materializing due recurring transactions",
		"total_due", len(templates),
		"as_of", asOf.Format("2006-01-02"))

	var created []core.Transaction

	for _, rt := range templates {
		candidate := core.Transaction{
			AccountID:   rt.AccountID,
			Date:        rt.DueDate,
			Description: rt.Description,
			Amount:      rt.Amount,
			Type:        rt.Type,
			Recurring:   true,
			Pending:     true,
		}

		exists, err := m.storage.RecurringTransactionExists(ctx, &candidate)
		if err != nil {
			slog.ErrorContext(ctx, "Failed duplicate check for due template",
				"template_id", rt.ID,
				"error", err)
			continue
		}
		if exists {
			slog.InfoContext(ctx, "Transaction already materialized, skipping",
				"template_id", rt.ID,
				"description", rt.Description,
				"due_date", rt.DueDate.Format("2006-01-02"))
			continue
		}

		saved, err := m.ledger.RecordTransaction(ctx, candidate)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize due template",
				"template_id", rt.ID,
				"description", rt.Description,
				"error", err)
			continue
		}

		created = append(created, *saved)
		slog.InfoContext(ctx, "Created transaction from recurring template",
			"template_id", rt.ID,
			"transaction_id", saved.ID,
			"description", rt.Description,
			"amount_cents", rt.Amount.Cents,
			"frequency", rt.Frequency.String())
	}

	slog.InfoContext(ctx, "Materialization complete",
		"created", len(created),
		"total_due", len(templates))

	return created, nil
}
