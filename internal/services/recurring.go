package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"kobo/internal/core"
	"kobo/internal/storage"
)

// RecurrenceEngine materializes recurring income and expense templates. It
// runs at app start, on a timer, and on foreground resume; the persisted
// period marker on each template makes overlapping runs insert each due row
// at most once per calendar month.
type RecurrenceEngine struct {
	repo   *storage.Repository
	logger *slog.Logger
}

func NewRecurrenceEngine(repo *storage.Repository, logger *slog.Logger) *RecurrenceEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecurrenceEngine{repo: repo, logger: logger}
}

// ProcessDue scans both template classes and materializes every template
// whose recurring day matches now's day-of-month and whose period marker
// precedes the current month. Failures are logged and swallowed per entity
// class: a broken income scan never blocks the expense scan, and a single
// malformed row never blocks the rest. The returned error joins whatever was
// swallowed, for the caller's log.
func (e *RecurrenceEngine) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	e.logger.InfoContext(ctx, "Processing recurring templates", "date", core.Today(now))

	incomeCount, incomeErr := e.processIncome(ctx, now)
	if incomeErr != nil {
		e.logger.ErrorContext(ctx, "Recurring income scan failed", "error", incomeErr)
	}

	expenseCount, expenseErr := e.processExpenses(ctx, now)
	if expenseErr != nil {
		e.logger.ErrorContext(ctx, "Recurring expense scan failed", "error", expenseErr)
	}

	total := incomeCount + expenseCount
	e.logger.InfoContext(ctx, "Recurring processing complete",
		"income_created", incomeCount,
		"expenses_created", expenseCount)

	return total, errors.Join(incomeErr, expenseErr)
}

func (e *RecurrenceEngine) processIncome(ctx context.Context, now time.Time) (int, error) {
	templates, err := e.repo.ListRecurringIncome(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring income: %w", err)
	}

	count := 0
	for _, tmpl := range templates {
		if !dueToday(tmpl.RecurringDay, now) {
			continue
		}

		created, err := e.repo.MaterializeIncome(ctx, tmpl, now)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to materialize income template",
				"id", tmpl.ID, "source", tmpl.Source, "error", err)
			continue
		}
		if !created {
			// Another trigger claimed this period first.
			continue
		}

		count++
		e.logger.InfoContext(ctx, "Materialized recurring income",
			"template_id", tmpl.ID, "source", tmpl.Source, "amount", tmpl.Amount)
	}
	return count, nil
}

func (e *RecurrenceEngine) processExpenses(ctx context.Context, now time.Time) (int, error) {
	templates, err := e.repo.ListRecurringExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring expenses: %w", err)
	}

	count := 0
	for _, tmpl := range templates {
		if !dueToday(tmpl.RecurringDay, now) {
			continue
		}

		created, err := e.repo.MaterializeExpense(ctx, tmpl, now)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to materialize expense template",
				"id", tmpl.ID, "item", tmpl.Item, "error", err)
			continue
		}
		if !created {
			continue
		}

		count++
		e.logger.InfoContext(ctx, "Materialized recurring expense",
			"template_id", tmpl.ID, "item", tmpl.Item, "amount", tmpl.Amount)
	}
	return count, nil
}

// dueToday reports whether the template's recurring day equals now's
// day-of-month. Malformed or empty days never match; day 31 in a 30-day
// month matches nothing, which is the intended degrade-gracefully behavior.
func dueToday(recurringDay string, now time.Time) bool {
	if recurringDay == "" {
		return false
	}
	day, err := strconv.Atoi(recurringDay)
	if err != nil {
		return false
	}
	return day == now.Day()
}
