// Package api is the boundary the UI collaborator calls. It keeps the legacy
// contract: operations report success as a bool and reads fall back to
// neutral values (empty list, zero), never an error. The typed errors from
// the service layer are resolved here: expected conditions log at Warn with
// a user-facing message, storage failures log at Error with full context.
package api

import (
	"context"
	"log/slog"
	"time"

	"kobo/internal/core"
	"kobo/internal/services"
	"kobo/internal/storage"
)

// seam for tests that pin the scan date
var timeNow = time.Now

type API struct {
	mgr    *storage.Manager
	ledger *services.Ledger
	engine *services.RecurrenceEngine
	logger *slog.Logger
}

func New(mgr *storage.Manager, ledger *services.Ledger, engine *services.RecurrenceEngine, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{mgr: mgr, ledger: ledger, engine: engine, logger: logger}
}

// fail translates an error into the uniform false return. Validation,
// not-found and conflict errors are expected and recoverable; anything else
// is a storage-level failure.
func (a *API) fail(ctx context.Context, op string, err error) bool {
	if core.IsValidation(err) || core.IsConflict(err) || err == core.ErrNotFound {
		a.logger.WarnContext(ctx, "Operation rejected", "op", op, "reason", err)
	} else {
		a.logger.ErrorContext(ctx, "Operation failed", "op", op, "error", err)
	}
	return false
}

// InitializeDatabase opens the store and creates the schema. Idempotent;
// concurrent callers share one initialization.
func (a *API) InitializeDatabase(ctx context.Context) bool {
	if err := a.mgr.Initialize(ctx); err != nil {
		return a.fail(ctx, "initializeDatabase", err)
	}
	return true
}

func (a *API) AddIncome(ctx context.Context, source string, amount float64, isRecurring bool, recurringDay string) bool {
	if _, err := a.ledger.AddIncome(ctx, source, amount, isRecurring, recurringDay); err != nil {
		return a.fail(ctx, "addIncome", err)
	}
	return true
}

func (a *API) AddExpense(ctx context.Context, item string, amount float64, isRecurring bool, recurringDay string) bool {
	if _, err := a.ledger.AddExpense(ctx, item, amount, isRecurring, recurringDay); err != nil {
		return a.fail(ctx, "addExpense", err)
	}
	return true
}

func (a *API) AddPlannedPurchase(ctx context.Context, item string, amount float64, dueDate string) bool {
	if _, err := a.ledger.AddPlannedPurchase(ctx, item, amount, dueDate); err != nil {
		return a.fail(ctx, "addPlannedPurchase", err)
	}
	return true
}

func (a *API) MarkPurchaseAsBought(ctx context.Context, id int64, amount float64, item string) bool {
	if err := a.ledger.MarkPurchaseAsBought(ctx, id, amount, item); err != nil {
		return a.fail(ctx, "markPurchaseAsBought", err)
	}
	return true
}

// GetIncome returns income rows newest-first, or an empty slice on failure.
// Callers cannot distinguish "no data" from "query failed"; that is the
// legacy contract.
func (a *API) GetIncome(ctx context.Context) []core.Income {
	list, err := a.ledger.Income(ctx)
	if err != nil {
		a.fail(ctx, "getIncome", err)
		return []core.Income{}
	}
	return list
}

func (a *API) GetExpenses(ctx context.Context) []core.Expense {
	list, err := a.ledger.Expenses(ctx)
	if err != nil {
		a.fail(ctx, "getExpenses", err)
		return []core.Expense{}
	}
	return list
}

func (a *API) GetPlannedPurchases(ctx context.Context) []core.PlannedPurchase {
	list, err := a.ledger.PlannedPurchases(ctx)
	if err != nil {
		a.fail(ctx, "getPlannedPurchases", err)
		return []core.PlannedPurchase{}
	}
	return list
}

func (a *API) GetTotalIncome(ctx context.Context) float64 {
	total, err := a.ledger.TotalIncome(ctx)
	if err != nil {
		a.fail(ctx, "getTotalIncome", err)
		return 0
	}
	return total
}

func (a *API) GetTotalExpenses(ctx context.Context) float64 {
	total, err := a.ledger.TotalExpenses(ctx)
	if err != nil {
		a.fail(ctx, "getTotalExpenses", err)
		return 0
	}
	return total
}

func (a *API) GetBalance(ctx context.Context) float64 {
	balance, err := a.ledger.Balance(ctx)
	if err != nil {
		a.fail(ctx, "getBalance", err)
		return 0
	}
	return balance
}

func (a *API) DeleteIncome(ctx context.Context, id int64) bool {
	if err := a.ledger.DeleteIncome(ctx, id); err != nil {
		return a.fail(ctx, "deleteIncome", err)
	}
	return true
}

func (a *API) DeleteExpense(ctx context.Context, id int64) bool {
	if err := a.ledger.DeleteExpense(ctx, id); err != nil {
		return a.fail(ctx, "deleteExpense", err)
	}
	return true
}

func (a *API) DeletePurchase(ctx context.Context, id int64) bool {
	if err := a.ledger.DeletePurchase(ctx, id); err != nil {
		return a.fail(ctx, "deletePurchase", err)
	}
	return true
}

func (a *API) ClearIncomeTable(ctx context.Context) bool {
	if err := a.ledger.ClearIncome(ctx); err != nil {
		return a.fail(ctx, "clearIncomeTable", err)
	}
	return true
}

func (a *API) ClearExpensesTable(ctx context.Context) bool {
	if err := a.ledger.ClearExpenses(ctx); err != nil {
		return a.fail(ctx, "clearExpensesTable", err)
	}
	return true
}

func (a *API) ClearPlannedPurchasesTable(ctx context.Context) bool {
	if err := a.ledger.ClearPlannedPurchases(ctx); err != nil {
		return a.fail(ctx, "clearPlannedPurchasesTable", err)
	}
	return true
}

func (a *API) ClearAllData(ctx context.Context) bool {
	if err := a.ledger.ClearAll(ctx); err != nil {
		return a.fail(ctx, "clearAllData", err)
	}
	return true
}

// HandleRecurringUpdates runs one recurrence scan. Invoked by the lifecycle
// collaborator on start, timer and resume; failures are already logged and
// swallowed inside the engine.
func (a *API) HandleRecurringUpdates(ctx context.Context) {
	_, _ = a.engine.ProcessDue(ctx, timeNow())
}

// ResetDatabase deletes the store file outright. The app must reinitialize
// before any further use.
func (a *API) ResetDatabase(ctx context.Context) bool {
	if err := a.mgr.Reset(ctx); err != nil {
		return a.fail(ctx, "resetDatabase", err)
	}
	return true
}
