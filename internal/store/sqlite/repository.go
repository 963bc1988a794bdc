package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"finance/internal/core"
	"finance/internal/store"
)

// timeLayout is fixed width so stored timestamps sort lexically in date order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Repository struct {
	db *sql.DB
}

var _ store.Store = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, avatar, name, category, occurred_at, amount_cents, recurring
		FROM transactions
		ORDER BY occurred_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		var (
			t        core.Transaction
			category string
			at       string
		)
		if err := rows.Scan(&t.ID, &t.Avatar, &t.Name, &category, &at, &t.Amount.Cents, &t.Recurring); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Category = core.Category(category)
		if t.Date, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("transaction %s date: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) InsertTransactions(ctx context.Context, txs []core.Transaction) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert transactions: %w", err)
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO transactions (id, avatar, name, category, occurred_at, amount_cents, recurring)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert transaction: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		_, err := stmt.ExecContext(ctx, t.ID, t.Avatar, t.Name, string(t.Category), formatTime(t.Date), t.Amount.Cents, t.Recurring)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, classify(err))
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit insert transactions: %w", err)
	}
	return nil
}

const budgetColumns = `category, maximum_cents, spent_cents, remaining_cents, theme, transaction_ids`

func (r *Repository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) GetBudget(ctx context.Context, category core.Category) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE category = ?`, string(category))
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %s: %w", category, store.ErrNotFound)
	}
	return b, err
}

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) error {
	ids, err := encodeIDs(b.Transactions)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		string(b.Category), b.Maximum.Cents, b.Spent.Cents, b.Remaining.Cents, string(b.Theme), ids)
	if err != nil {
		return fmt.Errorf("create budget %s: %w", b.Category, classify(err))
	}
	return nil
}

func (r *Repository) UpdateBudget(ctx context.Context, category core.Category, b core.Budget) error {
	ids, err := encodeIDs(b.Transactions)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE budgets
		SET category = ?, maximum_cents = ?, spent_cents = ?, remaining_cents = ?, theme = ?, transaction_ids = ?
		WHERE category = ?`,
		string(b.Category), b.Maximum.Cents, b.Spent.Cents, b.Remaining.Cents, string(b.Theme), ids, string(category))
	if err != nil {
		return fmt.Errorf("update budget %s: %w", category, classify(err))
	}
	return expectOne(res, "budget "+string(category))
}

func (r *Repository) SaveBudgetTotals(ctx context.Context, budgets []core.Budget) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save budget totals: %w", err)
	}
	defer dbtx.Rollback()

	for _, b := range budgets {
		ids, err := encodeIDs(b.Transactions)
		if err != nil {
			return err
		}
		_, err = dbtx.ExecContext(ctx, `
			UPDATE budgets SET spent_cents = ?, remaining_cents = ?, transaction_ids = ?
			WHERE category = ?`,
			b.Spent.Cents, b.Remaining.Cents, ids, string(b.Category))
		if err != nil {
			return fmt.Errorf("save totals for budget %s: %w", b.Category, err)
		}
	}
	return dbtx.Commit()
}

func (r *Repository) DeleteBudget(ctx context.Context, category core.Category) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE category = ?`, string(category))
	if err != nil {
		return fmt.Errorf("delete budget %s: %w", category, err)
	}
	return expectOne(res, "budget "+string(category))
}

func (r *Repository) ListPots(ctx context.Context) ([]core.Pot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, target_cents, total_cents, theme FROM pots ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list pots: %w", err)
	}
	defer rows.Close()

	out := make([]core.Pot, 0)
	for rows.Next() {
		var p core.Pot
		if err := rows.Scan(&p.ID, &p.Name, &p.Target.Cents, &p.Total.Cents, &p.Theme); err != nil {
			return nil, fmt.Errorf("scan pot: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) GetPot(ctx context.Context, id string) (core.Pot, error) {
	var p core.Pot
	err := r.db.QueryRowContext(ctx, `SELECT id, name, target_cents, total_cents, theme FROM pots WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Target.Cents, &p.Total.Cents, &p.Theme)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Pot{}, fmt.Errorf("pot %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Pot{}, fmt.Errorf("get pot %s: %w", id, err)
	}
	return p, nil
}

func (r *Repository) CreatePot(ctx context.Context, p core.Pot) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO pots (id, name, target_cents, total_cents, theme) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Target.Cents, p.Total.Cents, string(p.Theme))
	if err != nil {
		return fmt.Errorf("create pot %s: %w", p.Name, classify(err))
	}
	return nil
}

func (r *Repository) UpdatePot(ctx context.Context, p core.Pot) error {
	res, err := r.db.ExecContext(ctx, `UPDATE pots SET name = ?, target_cents = ?, total_cents = ?, theme = ? WHERE id = ?`,
		p.Name, p.Target.Cents, p.Total.Cents, string(p.Theme), p.ID)
	if err != nil {
		return fmt.Errorf("update pot %s: %w", p.ID, classify(err))
	}
	return expectOne(res, "pot "+p.ID)
}

func (r *Repository) DeletePot(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pot %s: %w", id, err)
	}
	return expectOne(res, "pot "+id)
}

func (r *Repository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, core.NormalizeEmail(u.Email), u.PasswordHash, formatTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Email, classify(err))
	}
	return nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, `email = ?`, core.NormalizeEmail(email))
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	return r.getUser(ctx, `id = ?`, id)
}

func (r *Repository) getUser(ctx context.Context, where string, arg string) (core.User, error) {
	var (
		u       core.User
		created string
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %s: %w", arg, store.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %s: %w", arg, err)
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return core.User{}, fmt.Errorf("user %s created_at: %w", u.ID, err)
	}
	return u, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b        core.Budget
		category string
		theme    string
		ids      string
	)
	if err := s.Scan(&category, &b.Maximum.Cents, &b.Spent.Cents, &b.Remaining.Cents, &theme, &ids); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, err
		}
		return b, fmt.Errorf("scan budget: %w", err)
	}
	b.Category = core.Category(category)
	b.Theme = core.Theme(theme)
	if err := json.Unmarshal([]byte(ids), &b.Transactions); err != nil {
		return b, fmt.Errorf("decode budget %s transaction ids: %w", category, err)
	}
	if b.Transactions == nil {
		b.Transactions = []string{}
	}
	return b, nil
}

func encodeIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	buf, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode transaction ids: %w", err)
	}
	return string(buf), nil
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return nil
}

// classify maps unique and primary key violations to store.ErrConflict.
func classify(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", store.ErrConflict, err)
		case sqlite3.SQLITE_CONSTRAINT:
			if strings.Contains(se.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("%w: %v", store.ErrConflict, err)
			}
		}
	}
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
