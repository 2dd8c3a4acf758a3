package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cenkalti/backoff/v5"

	"github.com/malbeclabs/warehouse-gateway/internal/config"
	"github.com/malbeclabs/warehouse-gateway/internal/metrics"
)

const (
	StateAbsent = "absent"
	StateOpen   = "open"
)

// Opener opens a new warehouse handle from flat connection parameters.
type Opener func(ctx context.Context, params map[string]string) (DB, error)

type ManagerConfig struct {
	Logger *slog.Logger
	Config func() config.Snowflake
	Opener Opener

	// ConnectAttempts bounds how many times a single request tries to open a handle. A value of
	// 1 (the default) fails the request on the first connect error.
	ConnectAttempts uint
}

func (c *ManagerConfig) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.Config == nil {
		return fmt.Errorf("config provider is required")
	}
	if c.Opener == nil {
		return fmt.Errorf("opener is required")
	}
	if c.ConnectAttempts == 0 {
		c.ConnectAttempts = 1
	}
	return nil
}

// Manager owns the single warehouse handle shared by every request. The handle is created on
// first use and replaced whenever its liveness ping fails.
type Manager struct {
	log *slog.Logger
	cfg ManagerConfig

	mu sync.Mutex
	db DB
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate manager config: %w", err)
	}
	return &Manager{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

// DB returns the stored handle if it is live, otherwise opens a new one.
func (m *Manager) DB(ctx context.Context) (DB, error) {
	m.mu.Lock()
	db := m.db
	m.mu.Unlock()

	if db != nil {
		err := db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		// A ping cut short by the caller says nothing about the shared handle.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, NewError(ErrorKindConnectivity, "get connection", ctxErr)
		}
		m.log.Warn("warehouse: stored connection is closed, reconnecting", "error", err)
	}

	return m.reconnect(ctx, db)
}

// reconnect replaces stale with a new handle. If another caller already replaced it, the
// replacement is returned instead of opening a second handle.
func (m *Manager) reconnect(ctx context.Context, stale DB) (DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil && m.db != stale {
		return m.db, nil
	}
	if m.db != nil {
		if err := m.db.Close(); err != nil {
			m.log.Debug("warehouse: failed to close stale connection", "error", err)
		}
		m.db = nil
	}

	cfg := m.cfg.Config()
	if err := cfg.Validate(); err != nil {
		return nil, NewError(ErrorKindConfig, "get connection", err)
	}
	params := cfg.ConnectionParams()

	attempt := 0
	db, err := backoff.Retry(ctx, func() (DB, error) {
		attempt++
		if attempt > 1 {
			m.log.Warn("warehouse: failed to connect, retrying", "attempt", attempt)
		}
		return m.open(ctx, params)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(m.cfg.ConnectAttempts))
	if err != nil {
		metrics.WarehouseConnectsTotal.WithLabelValues("error").Inc()
		return nil, NewError(ErrorKindConnectivity, "connect", err)
	}
	metrics.WarehouseConnectsTotal.WithLabelValues("success").Inc()

	m.log.Info("warehouse: connected",
		"account", params["account"],
		"user", params["user"],
		"warehouse", params["warehouse"],
		"database", params["database"],
		"schema", params["schema"],
		"role", params["role"],
	)
	m.db = db
	return db, nil
}

func (m *Manager) open(ctx context.Context, params map[string]string) (DB, error) {
	db, err := m.cfg.Opener(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// State reports whether a handle is currently stored.
func (m *Manager) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return StateAbsent
	}
	return StateOpen
}

// Close releases the stored handle. The next DB call reconnects.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	if err != nil {
		return fmt.Errorf("failed to close warehouse connection: %w", err)
	}
	return nil
}
