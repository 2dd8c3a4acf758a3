package warehouse

import (
	"context"
	"fmt"
)

type StatusResult struct {
	Status        string  `json:"status"`
	Server        string  `json:"server"`
	Version       string  `json:"version"`
	Connection    string  `json:"connection"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

type RootResult struct {
	Message string `json:"message"`
}

// Health runs a trivial query through the managed handle.
func (g *Gateway) Health(ctx context.Context) HealthResult {
	err := g.withConn(ctx, "health", func(ctx context.Context, conn Conn) error {
		rows, err := conn.QueryContext(ctx, "SELECT 1")
		if err != nil {
			return err
		}
		defer rows.Close()

		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return err
			}
			return fmt.Errorf("no rows returned")
		}
		return nil
	})
	if err != nil {
		return HealthResult{Status: HealthStatusUnhealthy, Error: Message(err)}
	}
	return HealthResult{Status: HealthStatusHealthy, Snowflake: "connected"}
}

// Status reports process information without touching the warehouse.
func (g *Gateway) Status() StatusResult {
	return StatusResult{
		Status:        "operational",
		Server:        ServerName,
		Version:       g.cfg.Version,
		Connection:    g.cfg.Manager.State(),
		UptimeSeconds: g.cfg.Clock.Since(g.startedAt).Seconds(),
	}
}

func (g *Gateway) Root() RootResult {
	return RootResult{Message: "Welcome to " + ServerName}
}
