package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"moneybags/internal/amqp"
	"moneybags/internal/core"
	"moneybags/internal/storage"
)

// LedgerService orchestrates transaction writes, recurring template sync,
// and the read-only reporting queries. Template sync is an explicit step
// invoked after a recurring transaction is persisted, not a hidden
// persistence hook.
type LedgerService struct {
	storage *storage.SQLiteRepository
	events  *amqp.Client
}

func NewLedgerService(storage *storage.SQLiteRepository, events *amqp.Client) *LedgerService {
	return &LedgerService{
		storage: storage,
		events:  events,
	}
}

// RecordTransaction validates, signs, and persists a transaction. When the
// transaction is flagged recurring, the matching template is synced before
// returning. A template sync failure does not roll back the saved
// transaction; it is logged and the transaction is returned anyway.
func (s *LedgerService) RecordTransaction(ctx context.Context, t core.Transaction) (*core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.Normalize()

	if err := s.storage.CreateTransaction(ctx, &t); err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	if t.Recurring {
		if _, err := s.SyncRecurringTemplate(ctx, &t); err != nil {
			slog.ErrorContext(ctx, "Failed to sync recurring template",
				"transaction_id", t.ID,
				"account_id", t.AccountID,
				"error", err)
		}
	}

	s.publishRecorded(ctx, &t)
	return &t, nil
}

// UpdateTransaction overwrites an existing transaction with the same
// normalization and template resync semantics as RecordTransaction.
func (s *LedgerService) UpdateTransaction(ctx context.Context, t core.Transaction) (*core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.Normalize()

	if err := s.storage.UpdateTransaction(ctx, &t); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	if t.Recurring {
		if _, err := s.SyncRecurringTemplate(ctx, &t); err != nil {
			slog.ErrorContext(ctx, "Failed to sync recurring template",
				"transaction_id", t.ID,
				"account_id", t.AccountID,
				"error", err)
		}
	}

	s.publishRecorded(ctx, &t)
	return &t, nil
}

// SyncRecurringTemplate upserts the one template tracking the series this
// transaction belongs to, advancing its last transaction date and
// recomputing its due date.
func (s *LedgerService) SyncRecurringTemplate(ctx context.Context, t *core.Transaction) (*core.RecurringTransaction, error) {
	return s.storage.UpsertTemplateFromTransaction(ctx, t)
}

// TemplateFor returns the template tracking a recurring transaction's
// series, creating it when it does not exist yet. Used by the
// edit-the-template flow.
func (s *LedgerService) TemplateFor(ctx context.Context, t *core.Transaction) (*core.RecurringTransaction, error) {
	template, err := s.storage.GetTemplate(ctx, t.AccountID, core.Slugify(t.Description), t.Type)
	if errors.Is(err, storage.ErrNotFound) {
		return s.storage.UpsertTemplateFromTransaction(ctx, t)
	}
	if err != nil {
		return nil, err
	}
	return template, nil
}

// SaveTemplate persists an edited template. An empty frequency is rejected
// here: a template saved through the edit flow must always yield a
// computable due date.
func (s *LedgerService) SaveTemplate(ctx context.Context, template *core.RecurringTransaction) error {
	return s.storage.SaveTemplate(ctx, template)
}

// Balance returns the account's credit and debit subtotals and net
// balance. Amounts are stored signed, so the net is the plain sum.
func (s *LedgerService) Balance(ctx context.Context, accountID int64) (core.BalanceSummary, error) {
	credits, debits, err := s.storage.TransactionSums(ctx, accountID)
	if err != nil {
		return core.BalanceSummary{}, fmt.Errorf("balance: %w", err)
	}
	return core.BalanceSummary{
		Credits: core.Money{Cents: credits},
		Debits:  core.Money{Cents: debits},
		Balance: core.Money{Cents: credits + debits},
	}, nil
}

// SimilarTransactions lists the other transactions on the same account
// with identical description and type, most recent first.
func (s *LedgerService) SimilarTransactions(ctx context.Context, t *core.Transaction) ([]core.Transaction, error) {
	return s.storage.SimilarTransactions(ctx, t)
}

// RecentActivity lists an account's transactions within the date window,
// most recent first.
func (s *LedgerService) RecentActivity(ctx context.Context, accountID int64, from, to core.Date) ([]core.Transaction, error) {
	return s.storage.ListTransactionsInRange(ctx, accountID, from, to)
}

// UpcomingRecurring lists an account's templates due on or after asOf.
func (s *LedgerService) UpcomingRecurring(ctx context.Context, accountID int64, asOf core.Date) ([]core.RecurringTransaction, error) {
	return s.storage.ListUpcomingTemplates(ctx, accountID, asOf)
}

func (s *LedgerService) publishRecorded(ctx context.Context, t *core.Transaction) {
	if s.events == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping transaction event")
		return
	}
	if err := s.events.PublishTransactionRecorded(ctx, t.ID, t.AccountID); err != nil {
		// Best effort: the transaction is already saved locally
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"id", t.ID, "error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
