package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kobo/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	mgr := NewManager(filepath.Join(t.TempDir(), "kobo.db"), 5*time.Second, nil)
	t.Cleanup(func() { mgr.Close() })
	require.NoError(t, mgr.Initialize(context.Background()))
	return NewRepository(mgr, nil)
}

func TestRepository_InsertAndListIncome(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.InsertIncome(ctx, core.Income{Source: "Salary", Amount: 250000, Date: "2024-01-15"})
	require.NoError(t, err)
	_, err = repo.InsertIncome(ctx, core.Income{
		Source: "Freelance", Amount: 80000, Date: "2024-03-02",
		Recurring: true, RecurringDay: "2",
	})
	require.NoError(t, err)

	list, err := repo.ListIncome(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	// Newest date first.
	assert.Equal(t, "Freelance", list[0].Source)
	assert.Equal(t, 80000.0, list[0].Amount)
	assert.True(t, list[0].Recurring)
	assert.Equal(t, "2", list[0].RecurringDay)
	assert.Equal(t, "Salary", list[1].Source)
	assert.False(t, list[1].Recurring)
	assert.Empty(t, list[1].RecurringDay)
}

func TestRepository_Totals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	total, err := repo.TotalIncome(ctx)
	require.NoError(t, err)
	assert.Zero(t, total, "empty table must sum to zero")

	_, err = repo.InsertIncome(ctx, core.Income{Source: "Salary", Amount: 1000, Date: "2024-01-15"})
	require.NoError(t, err)
	_, err = repo.InsertIncome(ctx, core.Income{Source: "Bonus", Amount: 500.50, Date: "2024-01-20"})
	require.NoError(t, err)
	_, err = repo.InsertExpense(ctx, core.Expense{Item: "Groceries", Amount: 200, Date: "2024-01-21"})
	require.NoError(t, err)

	income, err := repo.TotalIncome(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1500.50, income)

	expenses, err := repo.TotalExpenses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200.0, expenses)
}

func TestRepository_DeleteByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.InsertExpense(ctx, core.Expense{Item: "Coffee", Amount: 5, Date: "2024-01-15"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteExpense(ctx, id))

	list, err := repo.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = repo.DeleteExpense(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepository_PlannedPurchaseOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.InsertPlannedPurchase(ctx, core.PlannedPurchase{Item: "Laptop", Amount: 500})
	require.NoError(t, err)
	second, err := repo.InsertPlannedPurchase(ctx, core.PlannedPurchase{Item: "Monitor", Amount: 150, DueDate: "2024-06-01"})
	require.NoError(t, err)
	third, err := repo.InsertPlannedPurchase(ctx, core.PlannedPurchase{Item: "Desk", Amount: 90})
	require.NoError(t, err)

	// Buying the newest row moves it behind the unpurchased ones.
	require.NoError(t, repo.MarkPurchaseBought(ctx, third, 90, "Desk", time.Now()))

	list, err := repo.ListPlannedPurchases(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, second, list[0].ID, "unpurchased, newest first")
	assert.Equal(t, "2024-06-01", list[0].DueDate)
	assert.Equal(t, first, list[1].ID)
	assert.Equal(t, third, list[2].ID, "purchased rows sort last")
	assert.True(t, list[2].Purchased)
}

func TestRepository_MarkPurchaseBought(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("success links expense to purchase", func(t *testing.T) {
		repo := newTestRepo(t)
		id, err := repo.InsertPlannedPurchase(ctx, core.PlannedPurchase{Item: "Laptop", Amount: 500})
		require.NoError(t, err)

		require.NoError(t, repo.MarkPurchaseBought(ctx, id, 500, "Laptop", now))

		p, err := repo.GetPlannedPurchase(ctx, id)
		require.NoError(t, err)
		assert.True(t, p.Purchased)

		expenses, err := repo.ListExpenses(ctx)
		require.NoError(t, err)
		require.Len(t, expenses, 1)
		assert.Equal(t, "Laptop", expenses[0].Item)
		assert.Equal(t, 500.0, expenses[0].Amount)
		assert.Equal(t, core.Today(now), expenses[0].Date)
		assert.Equal(t, id, expenses[0].PurchaseID)
	})

	t.Run("unknown id", func(t *testing.T) {
		repo := newTestRepo(t)
		err := repo.MarkPurchaseBought(ctx, 99, 10, "Ghost", now)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("already bought", func(t *testing.T) {
		repo := newTestRepo(t)
		id, err := repo.InsertPlannedPurchase(ctx, core.PlannedPurchase{Item: "Laptop", Amount: 500})
		require.NoError(t, err)
		require.NoError(t, repo.MarkPurchaseBought(ctx, id, 500, "Laptop", now))

		err = repo.MarkPurchaseBought(ctx, id, 500, "Laptop", now)
		assert.ErrorIs(t, err, core.ErrAlreadyBought)

		expenses, err := repo.ListExpenses(ctx)
		require.NoError(t, err)
		assert.Len(t, expenses, 1, "repeat fulfillment must not add a second expense")
	})

	t.Run("duplicate expense rolls back the flag flip", func(t *testing.T) {
		repo := newTestRepo(t)
		id, err := repo.InsertPlannedPurchase(ctx, core.PlannedPurchase{Item: "Laptop", Amount: 500})
		require.NoError(t, err)
		_, err = repo.InsertExpense(ctx, core.Expense{Item: "Laptop", Amount: 480, Date: "2024-01-10"})
		require.NoError(t, err)

		err = repo.MarkPurchaseBought(ctx, id, 500, "Laptop", now)
		assert.ErrorIs(t, err, core.ErrDuplicateExpense)

		// All-or-nothing: the purchased flag must not survive the rollback.
		p, err := repo.GetPlannedPurchase(ctx, id)
		require.NoError(t, err)
		assert.False(t, p.Purchased)

		expenses, err := repo.ListExpenses(ctx)
		require.NoError(t, err)
		assert.Len(t, expenses, 1, "only the pre-existing expense remains")
	})
}

func TestRepository_MaterializeIncomeClaimsPeriodOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

	id, err := repo.InsertIncome(ctx, core.Income{
		Source: "Salary", Amount: 1000, Date: "2024-04-15",
		Recurring: true, RecurringDay: "15",
	})
	require.NoError(t, err)

	templates, err := repo.ListRecurringIncome(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 1)

	created, err := repo.MaterializeIncome(ctx, templates[0], now)
	require.NoError(t, err)
	assert.True(t, created)

	// Second trigger inside the same period loses the claim and inserts
	// nothing.
	created, err = repo.MaterializeIncome(ctx, templates[0], now)
	require.NoError(t, err)
	assert.False(t, created)

	list, err := repo.ListIncome(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	clone := list[0] // dated today, sorts first
	assert.Equal(t, "2024-05-15", clone.Date)
	assert.Equal(t, "Salary", clone.Source)
	assert.Equal(t, 1000.0, clone.Amount)
	assert.True(t, clone.Recurring)
	assert.Equal(t, "15", clone.RecurringDay)
	assert.Equal(t, "2024-05", clone.LastMaterialized)
	assert.NotEqual(t, id, clone.ID)

	// A later period reopens the template.
	nextMonth := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	templates, err = repo.ListRecurringIncome(ctx)
	require.NoError(t, err)
	created, err = repo.MaterializeIncome(ctx, templates[0], nextMonth)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRepository_ClearAllEmptiesEveryTable(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.InsertIncome(ctx, core.Income{Source: "Salary", Amount: 1000, Date: "2024-01-15"})
	require.NoError(t, err)
	_, err = repo.InsertExpense(ctx, core.Expense{Item: "Rent", Amount: 400, Date: "2024-01-16"})
	require.NoError(t, err)
	_, err = repo.InsertPlannedPurchase(ctx, core.PlannedPurchase{Item: "Laptop", Amount: 500})
	require.NoError(t, err)

	// Savings has no workflow yet; seed it directly so the clear is proven
	// against all four tables.
	db, err := repo.Manager().DB(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO savings (amount, frequency, date) VALUES (50, 'monthly', '2024-01-15')`)
	require.NoError(t, err)

	require.NoError(t, repo.ClearAll(ctx))

	for _, table := range []string{"income", "expenses", "planned_purchases", "savings"} {
		var count int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count))
		assert.Zero(t, count, "table %s must be empty after ClearAll", table)
	}

	income, err := repo.TotalIncome(ctx)
	require.NoError(t, err)
	assert.Zero(t, income)
	expenses, err := repo.TotalExpenses(ctx)
	require.NoError(t, err)
	assert.Zero(t, expenses)
}

func TestRepository_ClearSingleTables(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.InsertIncome(ctx, core.Income{Source: "Salary", Amount: 1000, Date: "2024-01-15"})
	require.NoError(t, err)
	_, err = repo.InsertExpense(ctx, core.Expense{Item: "Rent", Amount: 400, Date: "2024-01-16"})
	require.NoError(t, err)

	require.NoError(t, repo.ClearIncome(ctx))

	income, err := repo.ListIncome(ctx)
	require.NoError(t, err)
	assert.Empty(t, income)

	expenses, err := repo.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Len(t, expenses, 1, "clearing income must not touch expenses")
}
