package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kobo/internal/core"
)

// Repository exposes typed ledger operations over the managed connection.
// Multi-statement operations that must be atomic run inside explicit
// transactions with rollback on any failure.
type Repository struct {
	mgr    *Manager
	logger *slog.Logger
}

func NewRepository(mgr *Manager, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{mgr: mgr, logger: logger}
}

// Manager returns the connection manager backing this repository.
func (r *Repository) Manager() *Manager {
	return r.mgr
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}

// --- Income ---

func (r *Repository) InsertIncome(ctx context.Context, in core.Income) (int64, error) {
	db, err := r.mgr.DB(ctx)
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO income (source, amount, date, is_recurring, recurring_date, last_materialized)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.Source, in.Amount, in.Date, boolToInt(in.Recurring),
		nullIfEmpty(in.RecurringDay), nullIfEmpty(in.LastMaterialized))
	if err != nil {
		return 0, fmt.Errorf("insert income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert income id: %w", err)
	}
	return id, nil
}

func (r *Repository) ListIncome(ctx context.Context) ([]core.Income, error) {
	return r.queryIncome(ctx, `SELECT id, source, amount, date, is_recurring, recurring_date, last_materialized
		 FROM income ORDER BY date DESC`)
}

// ListRecurringIncome returns the recurring template rows, oldest first so
// materialization follows insertion order.
func (r *Repository) ListRecurringIncome(ctx context.Context) ([]core.Income, error) {
	return r.queryIncome(ctx, `SELECT id, source, amount, date, is_recurring, recurring_date, last_materialized
		 FROM income WHERE is_recurring = 1 ORDER BY id ASC`)
}

func (r *Repository) queryIncome(ctx context.Context, query string) ([]core.Income, error) {
	db, err := r.mgr.DB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query income: %w", err)
	}
	defer rows.Close()

	var result []core.Income
	for rows.Next() {
		var (
			in        core.Income
			recurring int64
			day, mark sql.NullString
		)
		if err := rows.Scan(&in.ID, &in.Source, &in.Amount, &in.Date, &recurring, &day, &mark); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		in.Recurring = recurring != 0
		in.RecurringDay = day.String
		in.LastMaterialized = mark.String
		result = append(result, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate income: %w", err)
	}
	return result, nil
}

func (r *Repository) TotalIncome(ctx context.Context) (float64, error) {
	return r.sumTable(ctx, "income")
}

func (r *Repository) DeleteIncome(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "income", id)
}

// --- Expenses ---

func (r *Repository) InsertExpense(ctx context.Context, e core.Expense) (int64, error) {
	db, err := r.mgr.DB(ctx)
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO expenses (item, amount, date, is_recurring, recurring_date, purchase_id, last_materialized)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Item, e.Amount, e.Date, boolToInt(e.Recurring),
		nullIfEmpty(e.RecurringDay), nullIfZero(e.PurchaseID), nullIfEmpty(e.LastMaterialized))
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert expense id: %w", err)
	}
	return id, nil
}

func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return r.queryExpenses(ctx, `SELECT id, item, amount, date, is_recurring, recurring_date, purchase_id, last_materialized
		 FROM expenses ORDER BY date DESC`)
}

// ListRecurringExpenses returns the recurring template rows, oldest first.
func (r *Repository) ListRecurringExpenses(ctx context.Context) ([]core.Expense, error) {
	return r.queryExpenses(ctx, `SELECT id, item, amount, date, is_recurring, recurring_date, purchase_id, last_materialized
		 FROM expenses WHERE is_recurring = 1 ORDER BY id ASC`)
}

func (r *Repository) queryExpenses(ctx context.Context, query string) ([]core.Expense, error) {
	db, err := r.mgr.DB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var result []core.Expense
	for rows.Next() {
		var (
			e          core.Expense
			recurring  int64
			day, mark  sql.NullString
			purchaseID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Item, &e.Amount, &e.Date, &recurring, &day, &purchaseID, &mark); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Recurring = recurring != 0
		e.RecurringDay = day.String
		e.PurchaseID = purchaseID.Int64
		e.LastMaterialized = mark.String
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return result, nil
}

func (r *Repository) TotalExpenses(ctx context.Context) (float64, error) {
	return r.sumTable(ctx, "expenses")
}

func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "expenses", id)
}

// --- Planned purchases ---

func (r *Repository) InsertPlannedPurchase(ctx context.Context, p core.PlannedPurchase) (int64, error) {
	db, err := r.mgr.DB(ctx)
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO planned_purchases (item, amount, purchased, due_date) VALUES (?, ?, 0, ?)`,
		p.Item, p.Amount, nullIfEmpty(p.DueDate))
	if err != nil {
		return 0, fmt.Errorf("insert planned purchase: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert planned purchase id: %w", err)
	}
	return id, nil
}

// ListPlannedPurchases returns purchases unpurchased-first, newest-first
// within each group.
func (r *Repository) ListPlannedPurchases(ctx context.Context) ([]core.PlannedPurchase, error) {
	db, err := r.mgr.DB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, item, amount, purchased, due_date FROM planned_purchases
		 ORDER BY purchased ASC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query planned purchases: %w", err)
	}
	defer rows.Close()

	var result []core.PlannedPurchase
	for rows.Next() {
		var (
			p         core.PlannedPurchase
			purchased int64
			due       sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Item, &p.Amount, &purchased, &due); err != nil {
			return nil, fmt.Errorf("scan planned purchase: %w", err)
		}
		p.Purchased = purchased != 0
		p.DueDate = due.String
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate planned purchases: %w", err)
	}
	return result, nil
}

func (r *Repository) GetPlannedPurchase(ctx context.Context, id int64) (*core.PlannedPurchase, error) {
	db, err := r.mgr.DB(ctx)
	if err != nil {
		return nil, err
	}

	var (
		p         core.PlannedPurchase
		purchased int64
		due       sql.NullString
	)
	err = db.QueryRowContext(ctx,
		`SELECT id, item, amount, purchased, due_date FROM planned_purchases WHERE id = ?`, id).
		Scan(&p.ID, &p.Item, &p.Amount, &purchased, &due)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get planned purchase: %w", err)
	}
	p.Purchased = purchased != 0
	p.DueDate = due.String
	return &p, nil
}

func (r *Repository) DeletePurchase(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "planned_purchases", id)
}

// MarkPurchaseBought runs the fulfillment workflow in one transaction: flip
// the purchased flag and record the matching expense, or neither. The guards
// run inside the transaction so a concurrent fulfillment of the same purchase
// cannot slip between the check and the update.
func (r *Repository) MarkPurchaseBought(ctx context.Context, id int64, amount float64, item string, now time.Time) error {
	db, err := r.mgr.DB(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fulfillment: %w", err)
	}
	defer tx.Rollback()

	var purchased int64
	err = tx.QueryRowContext(ctx,
		`SELECT purchased FROM planned_purchases WHERE id = ?`, id).Scan(&purchased)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load planned purchase: %w", err)
	}
	if purchased != 0 {
		return core.ErrAlreadyBought
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE planned_purchases SET purchased = 1 WHERE id = ? AND purchased = 0`, id)
	if err != nil {
		return fmt.Errorf("mark purchase bought: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("mark purchase bought: %w", err)
	} else if n == 0 {
		return core.ErrAlreadyBought
	}

	// Duplicate guard: an expense already linked to this purchase, or one
	// carrying the same item name, means the fulfillment already happened.
	var existing int64
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE purchase_id = ? OR item = ?`, id, item).Scan(&existing)
	if err != nil {
		return fmt.Errorf("check existing expense: %w", err)
	}
	if existing > 0 {
		return core.ErrDuplicateExpense
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (item, amount, date, is_recurring, purchase_id) VALUES (?, ?, ?, 0, ?)`,
		item, amount, core.Today(now), id)
	if err != nil {
		return fmt.Errorf("insert fulfillment expense: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fulfillment: %w", err)
	}
	return nil
}

// --- Recurrence materialization ---

// MaterializeIncome clones a recurring income template into a new row dated
// now, claiming the template's period marker in the same transaction. It
// returns false when another trigger already materialized this template for
// the current period.
func (r *Repository) MaterializeIncome(ctx context.Context, tmpl core.Income, now time.Time) (bool, error) {
	db, err := r.mgr.DB(ctx)
	if err != nil {
		return false, err
	}

	period := core.Period(now)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin materialization: %w", err)
	}
	defer tx.Rollback()

	// Claiming the marker first makes the insert exactly-once across
	// overlapping triggers: whoever loses the update skips the clone.
	res, err := tx.ExecContext(ctx,
		`UPDATE income SET last_materialized = ?
		 WHERE id = ? AND is_recurring = 1 AND (last_materialized IS NULL OR last_materialized < ?)`,
		period, tmpl.ID, period)
	if err != nil {
		return false, fmt.Errorf("claim income template: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, fmt.Errorf("claim income template: %w", err)
	} else if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO income (source, amount, date, is_recurring, recurring_date, last_materialized)
		 VALUES (?, ?, ?, 1, ?, ?)`,
		tmpl.Source, tmpl.Amount, core.Today(now), nullIfEmpty(tmpl.RecurringDay), period)
	if err != nil {
		return false, fmt.Errorf("insert materialized income: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit materialization: %w", err)
	}
	return true, nil
}

// MaterializeExpense is the expense counterpart of MaterializeIncome.
func (r *Repository) MaterializeExpense(ctx context.Context, tmpl core.Expense, now time.Time) (bool, error) {
	db, err := r.mgr.DB(ctx)
	if err != nil {
		return false, err
	}

	period := core.Period(now)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin materialization: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET last_materialized = ?
		 WHERE id = ? AND is_recurring = 1 AND (last_materialized IS NULL OR last_materialized < ?)`,
		period, tmpl.ID, period)
	if err != nil {
		return false, fmt.Errorf("claim expense template: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, fmt.Errorf("claim expense template: %w", err)
	} else if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (item, amount, date, is_recurring, recurring_date, last_materialized)
		 VALUES (?, ?, ?, 1, ?, ?)`,
		tmpl.Item, tmpl.Amount, core.Today(now), nullIfEmpty(tmpl.RecurringDay), period)
	if err != nil {
		return false, fmt.Errorf("insert materialized expense: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit materialization: %w", err)
	}
	return true, nil
}

// --- Bulk clears ---

func (r *Repository) ClearIncome(ctx context.Context) error {
	return r.clearTable(ctx, "income")
}

func (r *Repository) ClearExpenses(ctx context.Context) error {
	return r.clearTable(ctx, "expenses")
}

func (r *Repository) ClearPlannedPurchases(ctx context.Context) error {
	return r.clearTable(ctx, "planned_purchases")
}

// ClearAll empties all four tables in a single transaction.
func (r *Repository) ClearAll(ctx context.Context) error {
	db, err := r.mgr.DB(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear all: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"income", "expenses", "planned_purchases", "savings"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear all: %w", err)
	}
	return nil
}

// --- helpers ---

func (r *Repository) sumTable(ctx context.Context, table string) (float64, error) {
	db, err := r.mgr.DB(ctx)
	if err != nil {
		return 0, err
	}

	// Full-table summation on every call; no cached running total. Row
	// counts are personal-scale.
	var total float64
	err = db.QueryRowContext(ctx, "SELECT COALESCE(SUM(amount), 0) FROM "+table).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum %s: %w", table, err)
	}
	return total, nil
}

func (r *Repository) deleteByID(ctx context.Context, table string, id int64) error {
	db, err := r.mgr.DB(ctx)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	} else if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) clearTable(ctx context.Context, table string) error {
	db, err := r.mgr.DB(ctx)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
