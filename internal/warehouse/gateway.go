package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/malbeclabs/warehouse-gateway/internal/metrics"
)

const ServerName = "Snowflake MCP Server"

type GatewayConfig struct {
	Logger  *slog.Logger
	Manager *Manager
	Clock   clockwork.Clock

	// QueryTimeout bounds each warehouse operation. Zero means no bound beyond the caller's
	// context.
	QueryTimeout time.Duration

	Version string
}

func (c *GatewayConfig) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.Manager == nil {
		return fmt.Errorf("manager is required")
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("query timeout must be non-negative")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Version == "" {
		c.Version = "dev"
	}
	return nil
}

// Gateway runs queries and metadata commands against the warehouse handle owned by a Manager.
// Every operation reports its outcome through a Response envelope and never returns an error.
type Gateway struct {
	log       *slog.Logger
	cfg       GatewayConfig
	startedAt time.Time
}

func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate gateway config: %w", err)
	}
	return &Gateway{
		log:       cfg.Logger,
		cfg:       cfg,
		startedAt: cfg.Clock.Now(),
	}, nil
}

// withConn checks out a connection for the duration of fn and releases it on every path.
func (g *Gateway) withConn(ctx context.Context, op string, fn func(ctx context.Context, conn Conn) error) error {
	if g.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.QueryTimeout)
		defer cancel()
	}

	start := g.cfg.Clock.Now()
	err := g.run(ctx, op, fn)
	duration := g.cfg.Clock.Since(start)

	status := "success"
	if err != nil {
		status = string(KindOf(err))
		g.log.Warn("warehouse: operation failed", "operation", op, "kind", KindOf(err), "error", err, "duration", duration)
	} else {
		g.log.Debug("warehouse: operation completed", "operation", op, "duration", duration)
	}
	metrics.WarehouseOperationsTotal.WithLabelValues(op, status).Inc()
	metrics.WarehouseOperationDuration.WithLabelValues(op).Observe(duration.Seconds())
	return err
}

func (g *Gateway) run(ctx context.Context, op string, fn func(ctx context.Context, conn Conn) error) error {
	db, err := g.cfg.Manager.DB(ctx)
	if err != nil {
		return err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return NewError(ErrorKindQuery, op, fmt.Errorf("failed to get connection: %w", err))
	}
	defer func() {
		if err := conn.Close(); err != nil {
			g.log.Debug("warehouse: failed to close connection", "operation", op, "error", err)
		}
	}()

	if err := fn(ctx, conn); err != nil {
		var werr *Error
		if errors.As(err, &werr) {
			return err
		}
		return NewError(ErrorKindQuery, op, err)
	}
	return nil
}
