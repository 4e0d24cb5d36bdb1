package notify

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryNotifier_RecordsAlerts(t *testing.T) {
	n := NewMemoryNotifier()
	ctx := context.Background()

	if err := n.BudgetAlert(ctx, 120000, 100000); err != nil {
		t.Fatalf("BudgetAlert: %v", err)
	}

	alerts := n.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].TotalExpenses != 120000 || alerts[0].Threshold != 100000 {
		t.Errorf("alert = %+v, want total 120000 threshold 100000", alerts[0])
	}
	if alerts[0].Timestamp.IsZero() {
		t.Error("alert timestamp must be set")
	}
}

func TestMemoryNotifier_ConcurrentUse(t *testing.T) {
	n := NewMemoryNotifier()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = n.BudgetAlert(ctx, 50000, 40000)
		}()
	}
	wg.Wait()

	if got := len(n.Alerts()); got != 20 {
		t.Errorf("expected 20 alerts, got %d", got)
	}
}
