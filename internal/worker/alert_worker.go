// Package worker turns queued budget-alert events into notifications.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kobo/internal/notify"
)

// Deliverer hands a rendered notification to the platform. The daemon's
// default just logs; a real deployment plugs in the push service.
type Deliverer interface {
	Deliver(ctx context.Context, title, body string) error
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, title, body string) error

func (f DelivererFunc) Deliver(ctx context.Context, title, body string) error {
	return f(ctx, title, body)
}

// AlertWorker renders budget-alert events into user-facing copy and hands
// them to the deliverer.
type AlertWorker struct {
	deliverer Deliverer
}

func NewAlertWorker(deliverer Deliverer) *AlertWorker {
	return &AlertWorker{deliverer: deliverer}
}

// HandleAlert processes one queued alert event.
func (w *AlertWorker) HandleAlert(ctx context.Context, msg notify.BudgetAlertMessage) error {
	slog.InfoContext(ctx, "Processing budget alert",
		"total_expenses", msg.TotalExpenses,
		"threshold", msg.Threshold)

	if w.deliverer == nil {
		slog.WarnContext(ctx, "No deliverer configured, dropping alert")
		return nil
	}

	title, body := RenderBudgetAlert(msg)
	if err := w.deliverer.Deliver(ctx, title, body); err != nil {
		return fmt.Errorf("deliver alert: %w", err)
	}
	return nil
}

// RenderBudgetAlert produces the notification copy for a threshold event.
func RenderBudgetAlert(msg notify.BudgetAlertMessage) (title, body string) {
	title = "Budget Limit Alert"
	body = fmt.Sprintf("You have reached %.2f NGN in expenses", msg.Threshold)
	return title, body
}
