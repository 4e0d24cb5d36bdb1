// Package notify carries core events out to the notification collaborator.
// The core never renders push copy; it only emits the event.
package notify

import (
	"context"
	"sync"
)

// Notifier receives alert events from the core. Implementations must be safe
// for concurrent use.
type Notifier interface {
	// BudgetAlert reports that cumulative expenses reached the configured
	// threshold.
	BudgetAlert(ctx context.Context, totalExpenses, threshold float64) error
}

// MemoryNotifier records alerts in memory. It backs broker-less runs and
// tests.
type MemoryNotifier struct {
	mu     sync.Mutex
	alerts []BudgetAlertMessage
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

func (n *MemoryNotifier) BudgetAlert(_ context.Context, totalExpenses, threshold float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, NewBudgetAlertMessage(totalExpenses, threshold))
	return nil
}

// Alerts returns a copy of everything recorded so far.
func (n *MemoryNotifier) Alerts() []BudgetAlertMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]BudgetAlertMessage, len(n.alerts))
	copy(out, n.alerts)
	return out
}
