package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/malbeclabs/warehouse-gateway/internal/warehouse"
)

const (
	defaultListenAddr        = ":8000"
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 5 * time.Second
)

// Gateway is the set of warehouse operations exposed over HTTP and MCP.
type Gateway interface {
	ExecuteQuery(ctx context.Context, query string, fetchResults bool) warehouse.Response[warehouse.QueryResult]
	ListDatabases(ctx context.Context) warehouse.Response[warehouse.DatabasesResult]
	ListSchemas(ctx context.Context, database string) warehouse.Response[warehouse.SchemasResult]
	ListTables(ctx context.Context, database, schema string) warehouse.Response[warehouse.TablesResult]
	DescribeTable(ctx context.Context, table, database, schema string) warehouse.Response[warehouse.TableDescription]
	Health(ctx context.Context) warehouse.HealthResult
	Status() warehouse.StatusResult
	Root() warehouse.RootResult
}

type Config struct {
	Logger  *slog.Logger
	Gateway Gateway

	Version           string
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	// StrictStatus maps failed envelopes to an error status code by kind. By default every
	// envelope is returned with 200.
	StrictStatus bool

	// CORSOrigins enables CORS for the given origins when non-empty.
	CORSOrigins []string

	EnablePprof bool
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.Gateway == nil {
		return fmt.Errorf("gateway is required")
	}
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Version == "" {
		c.Version = "dev"
	}
	return nil
}
