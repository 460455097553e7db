// Package storage is the server's SQLite persistence layer. Amounts are
// stored as integer cents; dates as "YYYY-MM-DD" strings so lexical
// order equals chronological order.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"spendlens/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when the targeted row does not exist.
var ErrNotFound = errors.New("not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// -- Settings ---------------------------------------------------------------

// GetSetting returns the raw JSON value stored under key.
func (r *Repository) GetSetting(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return json.RawMessage(value), true, nil
}

// SetSetting stores value as JSON under key, replacing any previous value.
func (r *Repository) SetSetting(ctx context.Context, key string, value json.RawMessage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(value))
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// -- Expenses ---------------------------------------------------------------

const expenseColumns = `id, date, description, category, amount_cents, type, payment_method, location, mood, has_receipt`

func scanExpense(row interface{ Scan(...any) error }) (core.Expense, error) {
	var (
		e    core.Expense
		date string
	)
	err := row.Scan(&e.ID, &date, &e.Description, &e.Category, &e.Amount.Cents,
		&e.Type, &e.PaymentMethod, &e.Location, &e.Mood, &e.HasReceipt)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: %w", e.ID, err)
	}
	return e, nil
}

// ListExpenses returns all expenses newest first.
func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (date, description, category, amount_cents, type, payment_method, location, mood, has_receipt)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Date.String(), e.Description, e.Category, e.Amount.Cents,
		string(e.Type), e.PaymentMethod, e.Location, e.Mood, e.HasReceipt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())
	return e, nil
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET date = ?, description = ?, category = ?, amount_cents = ?,
		 type = ?, payment_method = ?, location = ?, mood = ?, has_receipt = ?
		 WHERE id = ?`,
		e.Date.String(), e.Description, e.Category, e.Amount.Cents,
		string(e.Type), e.PaymentMethod, e.Location, e.Mood, e.HasReceipt, e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Expense{}, ErrNotFound
	}
	return e, nil
}

// DeleteExpense removes the expense and its linked receipt photo in one
// transaction.
func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete expense: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE expense_id = ?`, id); err != nil {
		return fmt.Errorf("delete expense %d photo: %w", id, err)
	}
	return tx.Commit()
}

// -- Scheduled payments -----------------------------------------------------

func (r *Repository) ListPayments(ctx context.Context) ([]core.ScheduledPayment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, amount_cents, due_date, repeats, repeat_days
		 FROM payments ORDER BY due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []core.ScheduledPayment
	for rows.Next() {
		var (
			p   core.ScheduledPayment
			due string
		)
		if err := rows.Scan(&p.ID, &p.Description, &p.Amount.Cents, &due, &p.Repeats, &p.RepeatDays); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.DueDate, err = core.ParseDate(due)
		if err != nil {
			return nil, fmt.Errorf("payment %d: %w", p.ID, err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *Repository) CreatePayment(ctx context.Context, p core.ScheduledPayment) (core.ScheduledPayment, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (description, amount_cents, due_date, repeats, repeat_days)
		 VALUES (?, ?, ?, ?, ?)`,
		p.Description, p.Amount.Cents, p.DueDate.String(), p.Repeats, p.RepeatDays)
	if err != nil {
		return core.ScheduledPayment{}, fmt.Errorf("create payment: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return core.ScheduledPayment{}, fmt.Errorf("payment id: %w", err)
	}
	return p, nil
}

// UpdatePaymentDate advances the due date, the only mutable payment
// field, and returns the stored row.
func (r *Repository) UpdatePaymentDate(ctx context.Context, id int64, due core.Date) (core.ScheduledPayment, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET due_date = ? WHERE id = ?`, due.String(), id)
	if err != nil {
		return core.ScheduledPayment{}, fmt.Errorf("update payment %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ScheduledPayment{}, ErrNotFound
	}

	var (
		p      core.ScheduledPayment
		dueRaw string
	)
	err = r.db.QueryRowContext(ctx,
		`SELECT id, description, amount_cents, due_date, repeats, repeat_days FROM payments WHERE id = ?`, id).
		Scan(&p.ID, &p.Description, &p.Amount.Cents, &dueRaw, &p.Repeats, &p.RepeatDays)
	if err != nil {
		return core.ScheduledPayment{}, fmt.Errorf("reload payment %d: %w", id, err)
	}
	p.DueDate, err = core.ParseDate(dueRaw)
	if err != nil {
		return core.ScheduledPayment{}, fmt.Errorf("payment %d: %w", id, err)
	}
	return p, nil
}

func (r *Repository) DeletePayment(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payment %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// -- Receipt photos ---------------------------------------------------------

func (r *Repository) ListPhotos(ctx context.Context) ([]core.ReceiptPhoto, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, expense_id, data_url, date, description FROM photos ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []core.ReceiptPhoto
	for rows.Next() {
		var (
			p    core.ReceiptPhoto
			date string
		)
		if err := rows.Scan(&p.ID, &p.ExpenseID, &p.DataURL, &date, &p.Description); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		p.Date, err = core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("photo %d: %w", p.ID, err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// UpsertPhoto stores the receipt for p.ExpenseID, replacing any previous
// one, and flags the owning expense. One photo per expense.
func (r *Repository) UpsertPhoto(ctx context.Context, p core.ReceiptPhoto) (core.ReceiptPhoto, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.ReceiptPhoto{}, fmt.Errorf("begin upsert photo: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO photos (expense_id, data_url, date, description)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(expense_id) DO UPDATE SET
		   data_url = excluded.data_url,
		   date = excluded.date,
		   description = excluded.description`,
		p.ExpenseID, p.DataURL, p.Date.String(), p.Description)
	if err != nil {
		return core.ReceiptPhoto{}, fmt.Errorf("upsert photo for expense %d: %w", p.ExpenseID, err)
	}
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM photos WHERE expense_id = ?`, p.ExpenseID).Scan(&p.ID); err != nil {
		return core.ReceiptPhoto{}, fmt.Errorf("photo id for expense %d: %w", p.ExpenseID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE expenses SET has_receipt = 1 WHERE id = ?`, p.ExpenseID); err != nil {
		return core.ReceiptPhoto{}, fmt.Errorf("flag expense %d: %w", p.ExpenseID, err)
	}
	if err := tx.Commit(); err != nil {
		return core.ReceiptPhoto{}, fmt.Errorf("commit upsert photo: %w", err)
	}
	return p, nil
}

// DeletePhoto removes the receipt for an expense and clears the
// expense's flag.
func (r *Repository) DeletePhoto(ctx context.Context, expenseID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete photo: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE expense_id = ?`, expenseID)
	if err != nil {
		return fmt.Errorf("delete photo for expense %d: %w", expenseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE expenses SET has_receipt = 0 WHERE id = ?`, expenseID); err != nil {
		return fmt.Errorf("unflag expense %d: %w", expenseID, err)
	}
	return tx.Commit()
}
