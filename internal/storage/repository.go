package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"moneybags/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup scoped to an owner or account
// matches no row. Callers can distinguish it from other failures with
// errors.Is.
var ErrNotFound = errors.New("not found")

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	// foreign_keys makes account deletion cascade to transactions and
	// templates.
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateAccount inserts a new account, deriving the slug from the name.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, owner, name string) (*core.Account, error) {
	account := &core.Account{
		Name:  name,
		Slug:  core.Slugify(name),
		Owner: owner,
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (owner, name, slug) VALUES (?, ?, ?)`,
		account.Owner, account.Name, account.Slug)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("account insert id: %w", err)
	}
	account.ID = id
	account.UpdatedAt = time.Now().UTC()
	return account, nil
}

// SaveAccount updates an account's name, regenerating the slug. The slug
// is always slugify(name) as of the last save.
func (r *SQLiteRepository) SaveAccount(ctx context.Context, account *core.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	account.Slug = core.Slugify(account.Name)

	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, slug = ?, updated_on = datetime('now') WHERE id = ?`,
		account.Name, account.Slug, account.ID)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save account rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAccount retrieves an account by id.
func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (*core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner, name, slug, updated_on FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// GetAccountBySlug retrieves an account by its slug, scoped to an owner.
func (r *SQLiteRepository) GetAccountBySlug(ctx context.Context, owner, slug string) (*core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner, name, slug, updated_on FROM accounts WHERE owner = ? AND slug = ?`,
		owner, slug)
	return scanAccount(row)
}

// ListAccounts returns all of an owner's accounts ordered by name.
func (r *SQLiteRepository) ListAccounts(ctx context.Context, owner string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, name, slug, updated_on FROM accounts WHERE owner = ? ORDER BY name`,
		owner)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes an account and, through the schema's cascade, all
// of its transactions and recurring templates.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*core.Account, error) {
	var a core.Account
	var updated string
	err := row.Scan(&a.ID, &a.Owner, &a.Name, &a.Slug, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.UpdatedAt = parseTimestamp(updated)
	return &a, nil
}

func encodeDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Format(dateLayout)
}

func decodeDate(ns sql.NullString) core.Date {
	if !ns.Valid || ns.String == "" {
		return core.Date{}
	}
	t, err := time.Parse(dateLayout, ns.String)
	if err != nil {
		return core.Date{}
	}
	return core.Date{Time: t}
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
