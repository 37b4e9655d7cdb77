package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moneybags/internal/core"
)

const transactionColumns = `id, account_id, date, check_no, description, amount_cents,
	transaction_type, recurring, pending, updated_on`

// CreateTransaction persists a transaction and fills in its id. The caller
// is responsible for having normalized the amount sign beforehand.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
			(account_id, date, check_no, description, amount_cents, transaction_type, recurring, pending)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.AccountID, t.Date.Format(dateLayout), t.CheckNo, t.Description,
		t.Amount.Cents, int64(t.Type), t.Recurring, t.Pending)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction insert id: %w", err)
	}
	t.ID = id
	t.UpdatedAt = time.Now().UTC()

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"account_id", t.AccountID,
		"description", t.Description,
		"amount_cents", t.Amount.Cents,
		"type", t.Type.String(),
		"recurring", t.Recurring)

	return nil
}

// UpdateTransaction overwrites an existing transaction's fields.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t *core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET date = ?, check_no = ?, description = ?, amount_cents = ?,
		     transaction_type = ?, recurring = ?, pending = ?, updated_on = datetime('now')
		 WHERE id = ? AND account_id = ?`,
		t.Date.Format(dateLayout), t.CheckNo, t.Description, t.Amount.Cents,
		int64(t.Type), t.Recurring, t.Pending, t.ID, t.AccountID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// GetTransaction retrieves a transaction by id, scoped to an account.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, accountID, id int64) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND account_id = ?`,
		id, accountID)
	return scanTransaction(row)
}

// ListTransactions returns an account's transactions, most recent first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE account_id = ? ORDER BY date DESC, id DESC`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collectTransactions(rows)
}

// ListTransactionsInRange returns an account's transactions within
// [from, to] inclusive, most recent first.
func (r *SQLiteRepository) ListTransactionsInRange(ctx context.Context, accountID int64, from, to core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE account_id = ? AND date >= ? AND date <= ?
		 ORDER BY date DESC, id DESC`,
		accountID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list transactions in range: %w", err)
	}
	return collectTransactions(rows)
}

// SimilarTransactions returns the other transactions on the same account
// with an identical description and type, most recent first.
func (r *SQLiteRepository) SimilarTransactions(ctx context.Context, t *core.Transaction) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE account_id = ? AND description = ? AND transaction_type = ? AND id != ?
		 ORDER BY date DESC, id DESC`,
		t.AccountID, t.Description, int64(t.Type), t.ID)
	if err != nil {
		return nil, fmt.Errorf("similar transactions: %w", err)
	}
	return collectTransactions(rows)
}

// TransactionSums returns the credit and debit totals for an account.
// Amounts are stored signed, so the debit total is negative.
func (r *SQLiteRepository) TransactionSums(ctx context.Context, accountID int64) (credits, debits int64, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		 WHERE account_id = ? AND transaction_type = ?`,
		accountID, int64(core.Credit)).Scan(&credits)
	if err != nil {
		return 0, 0, fmt.Errorf("sum credits: %w", err)
	}
	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		 WHERE account_id = ? AND transaction_type = ?`,
		accountID, int64(core.Debit)).Scan(&debits)
	if err != nil {
		return 0, 0, fmt.Errorf("sum debits: %w", err)
	}
	return credits, debits, nil
}

// RecurringTransactionExists is the materialization duplicate guard: it
// reports whether a recurring transaction with the exact same date,
// description, amount, account, and type has already been created.
func (r *SQLiteRepository) RecurringTransactionExists(ctx context.Context, t *core.Transaction) (bool, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions
		 WHERE account_id = ? AND date = ? AND description = ? AND amount_cents = ?
		   AND transaction_type = ? AND recurring = 1`,
		t.AccountID, t.Date.Format(dateLayout), t.Description,
		t.Amount.Cents, int64(t.Type)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("recurring transaction exists: %w", err)
	}
	return count > 0, nil
}

func scanTransaction(row rowScanner) (*core.Transaction, error) {
	var (
		t        core.Transaction
		date     string
		checkNo  sql.NullInt64
		typeCode int64
		updated  string
	)
	err := row.Scan(&t.ID, &t.AccountID, &date, &checkNo, &t.Description,
		&t.Amount.Cents, &typeCode, &t.Recurring, &t.Pending, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	t.Date = decodeDate(sql.NullString{String: date, Valid: true})
	if checkNo.Valid {
		t.CheckNo = &checkNo.Int64
	}
	t.Type = core.TransactionType(typeCode)
	t.UpdatedAt = parseTimestamp(updated)
	return &t, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var transactions []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}
