package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/warehouse-gateway/internal/config"
)

var errDriver = errors.New("SQL compilation error: Object 'MISSING' does not exist or not authorized.")

func testLogger(t *testing.T) *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Snowflake {
	return config.Snowflake{
		Account:   "acct",
		User:      "user",
		Password:  "secret",
		Warehouse: "DEFAULT_WH",
		Role:      config.DefaultRole,
	}
}

func testManager(t *testing.T, opener Opener) *Manager {
	m, err := NewManager(ManagerConfig{
		Logger: testLogger(t),
		Config: testConfig,
		Opener: opener,
	})
	require.NoError(t, err)
	return m
}

func testGateway(t *testing.T, m *Manager, clock clockwork.Clock) *Gateway {
	g, err := NewGateway(GatewayConfig{
		Logger:  testLogger(t),
		Manager: m,
		Clock:   clock,
		Version: "test",
	})
	require.NoError(t, err)
	return g
}

// testMockGateway returns a gateway whose manager opens a sqlmock handle. The first operation
// expects a ping for the connect and each later operation expects a liveness ping.
func testMockGateway(t *testing.T) (*Gateway, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	m := testManager(t, func(ctx context.Context, params map[string]string) (DB, error) {
		return NewSQLDB(db), nil
	})
	return testGateway(t, m, clockwork.NewFakeClock()), mock
}

type countingDB struct {
	mu      sync.Mutex
	pingErr error

	conn   *countingConn
	closes atomic.Int32
}

func (d *countingDB) Conn(ctx context.Context) (Conn, error) {
	if d.conn == nil {
		return nil, errors.New("no connection available")
	}
	return d.conn, nil
}

func (d *countingDB) PingContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pingErr
}

func (d *countingDB) setPingErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pingErr = err
}

func (d *countingDB) Close() error {
	d.closes.Add(1)
	return nil
}

type countingConn struct {
	err    error
	closes atomic.Int32
}

func (c *countingConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, c.err
}

func (c *countingConn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, c.err
}

func (c *countingConn) Close() error {
	c.closes.Add(1)
	return nil
}

// countingOpener hands out the given handles in order and counts how many were opened.
type countingOpener struct {
	mu    sync.Mutex
	dbs   []*countingDB
	opens int
	err   error
}

func (o *countingOpener) open(ctx context.Context, params map[string]string) (DB, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		o.opens++
		return nil, o.err
	}
	if o.opens >= len(o.dbs) {
		return nil, errors.New("no more handles")
	}
	db := o.dbs[o.opens]
	o.opens++
	return db, nil
}

func (o *countingOpener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}
