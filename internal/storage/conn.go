package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"kobo/internal/core"
)

// State is the connection lifecycle state of a Manager.
type State int

const (
	Uninitialized State = iota
	Connecting
	Ready
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Manager owns the single database handle for the process. It opens the
// store lazily and exactly once: concurrent Initialize callers collapse onto
// one open-and-migrate sequence and all observe its outcome. A failed open
// returns the manager to Uninitialized so a later call can retry.
type Manager struct {
	path        string
	busyTimeout time.Duration
	logger      *slog.Logger

	mu    sync.Mutex
	state State
	db    *sql.DB

	group singleflight.Group
	opens int
}

func NewManager(path string, busyTimeout time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		path:        path,
		busyTimeout: busyTimeout,
		logger:      logger,
	}
}

// Initialize opens the store if it is not already open. It is safe to call
// from any number of goroutines; only one underlying open runs at a time.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.state == Ready {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	_, err, _ := m.group.Do("open", func() (any, error) {
		return nil, m.open(ctx)
	})
	return err
}

func (m *Manager) open(ctx context.Context) error {
	m.mu.Lock()
	if m.state == Ready {
		m.mu.Unlock()
		return nil
	}
	m.state = Connecting
	m.opens++
	m.mu.Unlock()

	db, err := m.openAndMigrate(ctx)
	if err != nil {
		m.mu.Lock()
		m.state = Uninitialized
		m.mu.Unlock()
		m.logger.ErrorContext(ctx, "Failed to initialize database", "path", m.path, "error", err)
		return err
	}

	m.mu.Lock()
	m.db = db
	m.state = Ready
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Database initialized", "path", m.path)
	return nil
}

func (m *Manager) openAndMigrate(ctx context.Context) (*sql.DB, error) {
	if dir := filepath.Dir(m.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	// busy_timeout queues concurrent writers instead of failing fast; the
	// recurrence engine, timers and UI actions can all hit the store within
	// the same second.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)",
		m.path, m.busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// The embedded engine is single-writer; one pooled connection keeps the
	// pragmas stable and serializes writes ahead of the engine lock.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(m.path); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// DB returns the live handle, initializing the store first if needed.
func (m *Manager) DB(ctx context.Context) (*sql.DB, error) {
	if err := m.Initialize(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil, core.ErrNotInitialized
	}
	return m.db, nil
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close releases the handle and returns the manager to Uninitialized.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.db != nil {
		err = m.db.Close()
		m.db = nil
	}
	m.state = Uninitialized
	return err
}

// Reset closes the store and deletes the underlying file. Everything is lost;
// the next Initialize starts from an empty store. This is the hard-reset
// escape hatch behind the settings screen, not part of the transactional API.
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.Close(); err != nil {
		m.logger.WarnContext(ctx, "Error closing database before reset", "error", err)
	}

	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove database file: %w", err)
	}

	m.logger.InfoContext(ctx, "Database file removed", "path", m.path)
	return nil
}
