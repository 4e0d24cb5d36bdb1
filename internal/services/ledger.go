package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"kobo/internal/core"
	"kobo/internal/notify"
	"kobo/internal/storage"
)

// Ledger is the write/read surface over the four tables. Every write runs the
// relevant validations before touching storage; invalid input never reaches
// the repository.
type Ledger struct {
	repo     *storage.Repository
	notifier notify.Notifier
	logger   *slog.Logger

	mu              sync.Mutex
	budgetThreshold float64
}

// NewLedger builds the service. threshold of zero disables budget alerts;
// notifier may be nil for the same effect.
func NewLedger(repo *storage.Repository, notifier notify.Notifier, threshold float64, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		repo:            repo,
		notifier:        notifier,
		logger:          logger,
		budgetThreshold: threshold,
	}
}

// SetBudgetThreshold updates the alert threshold at runtime. Zero disables
// the check.
func (l *Ledger) SetBudgetThreshold(threshold float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.budgetThreshold = threshold
}

// BudgetThreshold returns the current alert threshold.
func (l *Ledger) BudgetThreshold() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.budgetThreshold
}

// AddIncome validates and inserts an income row dated today. recurringDay is
// only consulted when recurring is set.
func (l *Ledger) AddIncome(ctx context.Context, source string, amount float64, recurring bool, recurringDay string) (int64, error) {
	if err := core.ValidateName("source", source); err != nil {
		return 0, err
	}
	if err := core.ValidateAmount(amount); err != nil {
		return 0, err
	}
	if recurring {
		if err := core.ValidateRecurringDay(recurringDay); err != nil {
			return 0, err
		}
	} else {
		recurringDay = ""
	}

	id, err := l.repo.InsertIncome(ctx, core.Income{
		Source:       strings.TrimSpace(source),
		Amount:       amount,
		Date:         core.Today(time.Now()),
		Recurring:    recurring,
		RecurringDay: recurringDay,
	})
	if err != nil {
		return 0, fmt.Errorf("add income: %w", err)
	}

	l.logger.InfoContext(ctx, "Income added", "id", id, "source", source, "amount", amount, "recurring", recurring)
	return id, nil
}

// AddExpense validates and inserts an expense row dated today, then checks
// the budget threshold. A failed alert is logged and never fails the write.
func (l *Ledger) AddExpense(ctx context.Context, item string, amount float64, recurring bool, recurringDay string) (int64, error) {
	if err := core.ValidateName("item name", item); err != nil {
		return 0, err
	}
	if err := core.ValidateAmount(amount); err != nil {
		return 0, err
	}
	if recurring {
		if err := core.ValidateRecurringDay(recurringDay); err != nil {
			return 0, err
		}
	} else {
		recurringDay = ""
	}

	id, err := l.repo.InsertExpense(ctx, core.Expense{
		Item:         strings.TrimSpace(item),
		Amount:       amount,
		Date:         core.Today(time.Now()),
		Recurring:    recurring,
		RecurringDay: recurringDay,
	})
	if err != nil {
		return 0, fmt.Errorf("add expense: %w", err)
	}

	l.logger.InfoContext(ctx, "Expense added", "id", id, "item", item, "amount", amount, "recurring", recurring)

	l.checkBudgetThreshold(ctx)
	return id, nil
}

func (l *Ledger) checkBudgetThreshold(ctx context.Context) {
	threshold := l.BudgetThreshold()
	if threshold <= 0 || l.notifier == nil {
		return
	}

	total, err := l.repo.TotalExpenses(ctx)
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to compute total for budget check", "error", err)
		return
	}
	if total < threshold {
		return
	}

	if err := l.notifier.BudgetAlert(ctx, total, threshold); err != nil {
		l.logger.ErrorContext(ctx, "Failed to send budget alert",
			"total_expenses", total, "threshold", threshold, "error", err)
	}
}

// AddPlannedPurchase validates and inserts a wishlist row. dueDate is
// optional; empty means none.
func (l *Ledger) AddPlannedPurchase(ctx context.Context, item string, amount float64, dueDate string) (int64, error) {
	if err := core.ValidateName("item name", item); err != nil {
		return 0, err
	}
	if err := core.ValidateAmount(amount); err != nil {
		return 0, err
	}
	if dueDate != "" {
		if err := core.ValidateFullDate("due date", dueDate); err != nil {
			return 0, err
		}
	}

	id, err := l.repo.InsertPlannedPurchase(ctx, core.PlannedPurchase{
		Item:    strings.TrimSpace(item),
		Amount:  amount,
		DueDate: dueDate,
	})
	if err != nil {
		return 0, fmt.Errorf("add planned purchase: %w", err)
	}

	l.logger.InfoContext(ctx, "Planned purchase added", "id", id, "item", item, "amount", amount, "due_date", dueDate)
	return id, nil
}

// MarkPurchaseAsBought runs the fulfillment workflow: the purchased flag
// flips and the expense is recorded, or neither happens.
func (l *Ledger) MarkPurchaseAsBought(ctx context.Context, id int64, amount float64, item string) error {
	if err := core.ValidateName("item name", item); err != nil {
		return err
	}
	if err := core.ValidateAmount(amount); err != nil {
		return err
	}

	if err := l.repo.MarkPurchaseBought(ctx, id, amount, strings.TrimSpace(item), time.Now()); err != nil {
		return err
	}

	l.logger.InfoContext(ctx, "Purchase marked as bought", "id", id, "item", item, "amount", amount)
	return nil
}

// --- reads ---

func (l *Ledger) Income(ctx context.Context) ([]core.Income, error) {
	return l.repo.ListIncome(ctx)
}

func (l *Ledger) Expenses(ctx context.Context) ([]core.Expense, error) {
	return l.repo.ListExpenses(ctx)
}

func (l *Ledger) PlannedPurchases(ctx context.Context) ([]core.PlannedPurchase, error) {
	return l.repo.ListPlannedPurchases(ctx)
}

func (l *Ledger) TotalIncome(ctx context.Context) (float64, error) {
	return l.repo.TotalIncome(ctx)
}

func (l *Ledger) TotalExpenses(ctx context.Context) (float64, error) {
	return l.repo.TotalExpenses(ctx)
}

// Balance is total income minus total expenses, recomputed on every call.
func (l *Ledger) Balance(ctx context.Context) (float64, error) {
	income, err := l.repo.TotalIncome(ctx)
	if err != nil {
		return 0, err
	}
	expenses, err := l.repo.TotalExpenses(ctx)
	if err != nil {
		return 0, err
	}
	return income - expenses, nil
}

// --- deletes and clears ---

func (l *Ledger) DeleteIncome(ctx context.Context, id int64) error {
	return l.repo.DeleteIncome(ctx, id)
}

func (l *Ledger) DeleteExpense(ctx context.Context, id int64) error {
	return l.repo.DeleteExpense(ctx, id)
}

func (l *Ledger) DeletePurchase(ctx context.Context, id int64) error {
	return l.repo.DeletePurchase(ctx, id)
}

func (l *Ledger) ClearIncome(ctx context.Context) error {
	return l.repo.ClearIncome(ctx)
}

func (l *Ledger) ClearExpenses(ctx context.Context) error {
	return l.repo.ClearExpenses(ctx)
}

func (l *Ledger) ClearPlannedPurchases(ctx context.Context) error {
	return l.repo.ClearPlannedPurchases(ctx)
}

func (l *Ledger) ClearAll(ctx context.Context) error {
	return l.repo.ClearAll(ctx)
}
