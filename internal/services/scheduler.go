package services

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// RecurrenceRunner is the slice of the boundary API the scheduler drives.
type RecurrenceRunner interface {
	HandleRecurringUpdates(ctx context.Context)
}

// Scheduler re-runs the recurrence scan on a fixed interval and whenever the
// resume channel fires (the foreground-resume trigger). The scan itself is
// idempotent within a period, so overlapping triggers are harmless.
type Scheduler struct {
	runner   RecurrenceRunner
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

func NewScheduler(runner RecurrenceRunner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the background loop. resume may be nil.
func (s *Scheduler) Start(ctx context.Context, resume <-chan os.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true
	s.ticker = time.NewTicker(s.interval)
	s.wg.Add(1)

	go s.run(ctx, resume)

	s.logger.Info("Scheduler started", "interval", s.interval)
}

func (s *Scheduler) run(ctx context.Context, resume <-chan os.Signal) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ticker.C:
			s.logger.Info("Periodic recurrence scan")
			s.runner.HandleRecurringUpdates(ctx)
		case <-resume:
			s.logger.Info("Resume signal received, running recurrence scan")
			s.runner.HandleRecurringUpdates(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the loop and waits for it to exit. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}
