package warehouse

import (
	"context"
	"database/sql"
)

// DB is a handle to one warehouse session.
type DB interface {
	Conn(ctx context.Context) (Conn, error)
	PingContext(ctx context.Context) error
	Close() error
}

// Conn is a connection checked out from a DB for the duration of one operation. Callers must
// Close it when done.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Close() error
}

type sqlDB struct {
	db *sql.DB
}

// NewSQLDB adapts a database/sql handle to DB.
func NewSQLDB(db *sql.DB) DB {
	return &sqlDB{db: db}
}

func (d *sqlDB) Conn(ctx context.Context) (Conn, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (d *sqlDB) PingContext(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *sqlDB) Close() error {
	return d.db.Close()
}
