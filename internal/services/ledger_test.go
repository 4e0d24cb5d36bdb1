package services

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kobo/internal/core"
	"kobo/internal/notify"
	"kobo/internal/storage"
)

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	mgr := storage.NewManager(filepath.Join(t.TempDir(), "kobo.db"), 5*time.Second, nil)
	t.Cleanup(func() { mgr.Close() })
	require.NoError(t, mgr.Initialize(context.Background()))
	return storage.NewRepository(mgr, nil)
}

func newTestLedger(t *testing.T, threshold float64) (*Ledger, *notify.MemoryNotifier) {
	t.Helper()
	notifier := notify.NewMemoryNotifier()
	return NewLedger(newTestRepo(t), notifier, threshold, nil), notifier
}

func TestLedger_AddIncomeInsertsExactlyOneRowDatedToday(t *testing.T) {
	ledger, _ := newTestLedger(t, 0)
	ctx := context.Background()

	id, err := ledger.AddIncome(ctx, "Salary", 250000, false, "")
	require.NoError(t, err)
	assert.Positive(t, id)

	list, err := ledger.Income(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Salary", list[0].Source)
	assert.Equal(t, 250000.0, list[0].Amount)
	assert.Equal(t, core.Today(time.Now()), list[0].Date)
	assert.False(t, list[0].Recurring)
}

func TestLedger_AddIncomeRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name         string
		source       string
		amount       float64
		recurring    bool
		recurringDay string
	}{
		{"negative amount", "Salary", -100, false, ""},
		{"NaN amount", "Salary", math.NaN(), false, ""},
		{"empty source", "", 100, false, ""},
		{"whitespace source", "   ", 100, false, ""},
		{"bad recurring day", "Salary", 100, true, "32"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, _ := newTestLedger(t, 0)
			ctx := context.Background()

			_, err := ledger.AddIncome(ctx, tt.source, tt.amount, tt.recurring, tt.recurringDay)
			require.Error(t, err)
			assert.True(t, core.IsValidation(err), "want a validation error, got %v", err)

			list, err := ledger.Income(ctx)
			require.NoError(t, err)
			assert.Empty(t, list, "invalid input must not insert a row")
		})
	}
}

func TestLedger_AddExpenseIgnoresRecurringDayWhenNotRecurring(t *testing.T) {
	ledger, _ := newTestLedger(t, 0)
	ctx := context.Background()

	// Day string is only consulted for recurring rows; a stale UI value must
	// not fail or persist.
	_, err := ledger.AddExpense(ctx, "Groceries", 5000, false, "garbage")
	require.NoError(t, err)

	list, err := ledger.Expenses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].RecurringDay)
}

func TestLedger_BudgetAlert(t *testing.T) {
	ctx := context.Background()

	t.Run("fires when the threshold is crossed", func(t *testing.T) {
		ledger, notifier := newTestLedger(t, 10000)

		_, err := ledger.AddExpense(ctx, "Rent", 6000, false, "")
		require.NoError(t, err)
		assert.Empty(t, notifier.Alerts(), "below threshold, no alert")

		_, err = ledger.AddExpense(ctx, "School fees", 5000, false, "")
		require.NoError(t, err)

		alerts := notifier.Alerts()
		require.Len(t, alerts, 1)
		assert.Equal(t, 11000.0, alerts[0].TotalExpenses)
		assert.Equal(t, 10000.0, alerts[0].Threshold)
	})

	t.Run("disabled when threshold is zero", func(t *testing.T) {
		ledger, notifier := newTestLedger(t, 0)

		_, err := ledger.AddExpense(ctx, "Rent", 999999, false, "")
		require.NoError(t, err)
		assert.Empty(t, notifier.Alerts())
	})

	t.Run("threshold is runtime settable", func(t *testing.T) {
		ledger, notifier := newTestLedger(t, 0)

		ledger.SetBudgetThreshold(500)
		_, err := ledger.AddExpense(ctx, "Data bundle", 600, false, "")
		require.NoError(t, err)
		assert.Len(t, notifier.Alerts(), 1)
	})
}

func TestLedger_BalanceEqualsIncomeMinusExpenses(t *testing.T) {
	ledger, _ := newTestLedger(t, 0)
	ctx := context.Background()

	balance, err := ledger.Balance(ctx)
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = ledger.AddIncome(ctx, "Salary", 1000, false, "")
	require.NoError(t, err)
	_, err = ledger.AddIncome(ctx, "Bonus", 250, false, "")
	require.NoError(t, err)
	_, err = ledger.AddExpense(ctx, "Rent", 400, false, "")
	require.NoError(t, err)

	income, err := ledger.TotalIncome(ctx)
	require.NoError(t, err)
	expenses, err := ledger.TotalExpenses(ctx)
	require.NoError(t, err)
	balance, err = ledger.Balance(ctx)
	require.NoError(t, err)

	assert.Equal(t, income-expenses, balance)
	assert.Equal(t, 850.0, balance)
}

func TestLedger_AddPlannedPurchaseValidatesDueDate(t *testing.T) {
	ledger, _ := newTestLedger(t, 0)
	ctx := context.Background()

	_, err := ledger.AddPlannedPurchase(ctx, "Laptop", 500, "not-a-date")
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))

	_, err = ledger.AddPlannedPurchase(ctx, "Laptop", 500, "")
	require.NoError(t, err, "due date is optional")

	list, err := ledger.PlannedPurchases(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLedger_MarkPurchaseAsBoughtValidatesBeforeStorage(t *testing.T) {
	ledger, _ := newTestLedger(t, 0)
	ctx := context.Background()

	err := ledger.MarkPurchaseAsBought(ctx, 1, 500, "")
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))

	// A valid call against a missing id surfaces the conflict taxonomy, not
	// a validation error.
	err = ledger.MarkPurchaseAsBought(ctx, 1, 500, "Laptop")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
