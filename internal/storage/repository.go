package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
	"kakeibo/internal/log"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// A single connection serialises writers and avoids SQLITE_BUSY between pooled conns.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) stamp() string {
	return formatTime(r.now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddTransaction validates and stores t, assigning an ID when it has none.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, category, description, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, string(t.Kind), t.Amount.String(), t.Category, t.Description, t.Date, r.stamp())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		log.FieldComponent, log.ComponentStorage,
		log.FieldTransactionID, t.ID,
		log.FieldUserID, t.UserID,
		log.FieldAmount, t.Amount.String())

	return t, nil
}

// ImportTransaction inserts t unless (user, id) already exists.
func (r *SQLiteRepository) ImportTransaction(ctx context.Context, t core.Transaction) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, category, description, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO NOTHING`,
		t.ID, t.UserID, string(t.Kind), t.Amount.String(), t.Category, t.Description, t.Date, r.stamp())
	if err != nil {
		return false, fmt.Errorf("import transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("import transaction: %w", err)
	}
	if n == 0 {
		slog.DebugContext(ctx, "Transaction already imported",
			log.FieldComponent, log.ComponentStorage,
			log.FieldTransactionID, t.ID,
			log.FieldUserID, t.UserID)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, amount, category, description, date
		FROM transactions
		WHERE user_id = ?
		ORDER BY date DESC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		var (
			t      core.Transaction
			kind   string
			amount string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &kind, &amount, &t.Category, &t.Description, &t.Date); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind = core.Kind(kind)
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount of transaction %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// DeleteTransaction removes the row if it exists.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

const budgetColumns = `id, user_id, category, amount, month, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b                    core.Budget
		amount, month        string
		createdAt, updatedAt string
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.Category, &amount, &month, &createdAt, &updatedAt); err != nil {
		return core.Budget{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("parse amount of budget %s: %w", b.ID, err)
	}
	b.Amount = d
	b.Month = core.Month(month)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+budgetColumns+`
		FROM budgets
		WHERE user_id = ?
		ORDER BY month DESC, category ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

// UpsertBudget inserts or updates the budget for (user, month, category) in one statement.
// An existing row keeps its id and created_at.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := r.stamp()
	created, updated := now, now
	if !b.CreatedAt.IsZero() {
		created = formatTime(b.CreatedAt)
	}
	if !b.UpdatedAt.IsZero() {
		updated = formatTime(b.UpdatedAt)
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO budgets (`+budgetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, month, category) DO UPDATE SET
			amount = excluded.amount,
			updated_at = excluded.updated_at
		RETURNING `+budgetColumns,
		b.ID, b.UserID, b.Category, b.Amount.String(), string(b.Month), created, updated)

	saved, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}

	slog.DebugContext(ctx, "Budget saved to SQLite",
		log.FieldComponent, log.ComponentStorage,
		log.FieldUserID, saved.UserID,
		log.FieldMonth, saved.Month,
		log.FieldCategory, saved.Category)

	return saved, nil
}

// DeleteBudget removes the budget at the key if it exists.
func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID string, month core.Month, category string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE user_id = ? AND month = ? AND category = ?`,
		userID, string(month), category)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, kind core.Kind) ([]string, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM categories WHERE kind = ? ORDER BY position, name`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// GetTransaction returns one transaction or core.ErrNotFound.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	var (
		t            core.Transaction
		kind, amount string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, amount, category, description, date
		FROM transactions WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&t.ID, &t.UserID, &kind, &amount, &t.Category, &t.Description, &t.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	t.Kind = core.Kind(kind)
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount of transaction %s: %w", id, err)
	}
	return t, nil
}
