package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"moneybags/internal/core"
)

const templateColumns = `id, account_id, description, desc_slug, amount_cents,
	transaction_type, frequency, frequency_start_date, last_transaction_date,
	due_date, updated_on`

// GetTemplate retrieves the template for a series by its unique
// (account, desc_slug, type) key.
func (r *SQLiteRepository) GetTemplate(ctx context.Context, accountID int64, descSlug string, t core.TransactionType) (*core.RecurringTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM recurring_transactions
		 WHERE account_id = ? AND desc_slug = ? AND transaction_type = ?`,
		accountID, descSlug, int64(t))
	return scanTemplate(row)
}

// GetTemplateByID retrieves a template by id, scoped to an account.
func (r *SQLiteRepository) GetTemplateByID(ctx context.Context, accountID, id int64) (*core.RecurringTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM recurring_transactions
		 WHERE id = ? AND account_id = ?`,
		id, accountID)
	return scanTemplate(row)
}

// UpsertTemplateFromTransaction keeps the one template for a recurring
// series in sync with a just-saved transaction. The read-then-write runs
// in a single database transaction so a concurrent upsert for the same
// (account, desc_slug, type) key cannot produce two rows.
//
// A template created here anchors the series at the triggering
// transaction's date and carries no frequency until the user sets one via
// the edit flow.
func (r *SQLiteRepository) UpsertTemplateFromTransaction(ctx context.Context, t *core.Transaction) (*core.RecurringTransaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin template upsert: %w", err)
	}
	defer tx.Rollback()

	descSlug := core.Slugify(t.Description)
	row := tx.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM recurring_transactions
		 WHERE account_id = ? AND desc_slug = ? AND transaction_type = ?`,
		t.AccountID, descSlug, int64(t.Type))

	template, err := scanTemplate(row)
	created := false
	if errors.Is(err, ErrNotFound) {
		created = true
		template = &core.RecurringTransaction{
			AccountID:          t.AccountID,
			DescSlug:           descSlug,
			Type:               t.Type,
			FrequencyStartDate: t.Date,
		}
	} else if err != nil {
		return nil, err
	}

	template.Description = t.Description
	template.Amount = t.Amount
	template.LastTransactionDate = t.Date

	due, err := template.ComputeDueDate()
	if err != nil {
		return nil, fmt.Errorf("compute due date: %w", err)
	}
	template.DueDate = due

	if created {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO recurring_transactions
				(account_id, description, desc_slug, amount_cents, transaction_type,
				 frequency, frequency_start_date, last_transaction_date, due_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			template.AccountID, template.Description, template.DescSlug,
			template.Amount.Cents, int64(template.Type), string(template.Frequency),
			encodeDate(template.FrequencyStartDate),
			encodeDate(template.LastTransactionDate),
			encodeDate(template.DueDate))
		if err != nil {
			return nil, fmt.Errorf("insert template: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("template insert id: %w", err)
		}
		template.ID = id
	} else {
		_, err := tx.ExecContext(ctx,
			`UPDATE recurring_transactions
			 SET description = ?, amount_cents = ?, last_transaction_date = ?,
			     due_date = ?, updated_on = datetime('now')
			 WHERE id = ?`,
			template.Description, template.Amount.Cents,
			encodeDate(template.LastTransactionDate),
			encodeDate(template.DueDate), template.ID)
		if err != nil {
			return nil, fmt.Errorf("update template: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit template upsert: %w", err)
	}

	slog.InfoContext(ctx, "Recurring template synced",
		"template_id", template.ID,
		"account_id", template.AccountID,
		"desc_slug", template.DescSlug,
		"created", created,
		"due_date", template.DueDate.Format(dateLayout))

	return template, nil
}

// SaveTemplate persists an edited template, re-deriving the description
// slug and the due date. This is the explicit edit path, so the template
// must validate (in particular it must carry a frequency).
func (r *SQLiteRepository) SaveTemplate(ctx context.Context, template *core.RecurringTransaction) error {
	if err := template.Validate(); err != nil {
		return err
	}
	template.DescSlug = core.Slugify(template.Description)

	due, err := template.ComputeDueDate()
	if err != nil {
		return fmt.Errorf("compute due date: %w", err)
	}
	template.DueDate = due

	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions
		 SET description = ?, desc_slug = ?, amount_cents = ?, frequency = ?,
		     frequency_start_date = ?, last_transaction_date = ?, due_date = ?,
		     updated_on = datetime('now')
		 WHERE id = ? AND account_id = ?`,
		template.Description, template.DescSlug, template.Amount.Cents,
		string(template.Frequency),
		encodeDate(template.FrequencyStartDate),
		encodeDate(template.LastTransactionDate),
		encodeDate(template.DueDate),
		template.ID, template.AccountID)
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save template rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTemplatesDueOn returns every template whose due date is exactly the
// given date. Selection is by equality, not "due or overdue": a template
// whose due date has rolled past is no longer selected.
func (r *SQLiteRepository) ListTemplatesDueOn(ctx context.Context, date core.Date) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM recurring_transactions
		 WHERE due_date = ?
		 ORDER BY account_id, description`,
		date.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list templates due: %w", err)
	}
	return collectTemplates(rows)
}

// ListUpcomingTemplates returns an account's templates due on or after the
// given date, soonest first. Used by the account detail view.
func (r *SQLiteRepository) ListUpcomingTemplates(ctx context.Context, accountID int64, asOf core.Date) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM recurring_transactions
		 WHERE account_id = ? AND due_date >= ?
		 ORDER BY due_date, description`,
		accountID, asOf.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list upcoming templates: %w", err)
	}
	return collectTemplates(rows)
}

func scanTemplate(row rowScanner) (*core.RecurringTransaction, error) {
	var (
		rt        core.RecurringTransaction
		typeCode  int64
		frequency string
		start     sql.NullString
		last      sql.NullString
		due       sql.NullString
		updated   string
	)
	err := row.Scan(&rt.ID, &rt.AccountID, &rt.Description, &rt.DescSlug,
		&rt.Amount.Cents, &typeCode, &frequency, &start, &last, &due, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}
	rt.Type = core.TransactionType(typeCode)
	rt.Frequency = core.Frequency(frequency)
	rt.FrequencyStartDate = decodeDate(start)
	rt.LastTransactionDate = decodeDate(last)
	rt.DueDate = decodeDate(due)
	rt.UpdatedAt = parseTimestamp(updated)
	return &rt, nil
}

func collectTemplates(rows *sql.Rows) ([]core.RecurringTransaction, error) {
	defer rows.Close()
	var templates []core.RecurringTransaction
	for rows.Next() {
		rt, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *rt)
	}
	return templates, rows.Err()
}
