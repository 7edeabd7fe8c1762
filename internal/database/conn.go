package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Execer runs a single statement and reports how many rows it touched.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// Row is a single-row query result.
type Row interface {
	Scan(dest ...any) error
}

// Rows is a multi-row query result. Close must be called when done.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Releaser is returned by AcquireLock and must be released when done.
type Releaser interface {
	Release(ctx context.Context) error
}

// Timeouts bound how long a transaction may wait for locks and run statements.
// Zero means "leave the server default".
type Timeouts struct {
	Lock      time.Duration
	Statement time.Duration
}

// Conn is an explicitly constructed database handle. It replaces a
// process-wide connection singleton: callers open one, pass it down,
// and close it on every path.
type Conn interface {
	Execer
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// InTransaction runs fn inside a transaction with the given timeouts.
	// The transaction commits when fn returns nil and rolls back otherwise.
	InTransaction(ctx context.Context, t Timeouts, fn func(Execer) error) error

	// AcquireLock takes the migration lock without waiting.
	AcquireLock(ctx context.Context) (Releaser, error)

	// SQLDB exposes a database/sql handle over the same connection pool,
	// for libraries that need one (the ORM).
	SQLDB() *sql.DB

	Dialect() Dialect
	Close()
}

// Open connects to the database named by databaseURL and verifies the
// connection with a ping. Nothing is written before the ping succeeds.
func Open(ctx context.Context, databaseURL string) (Conn, error) {
	t, err := parseTarget(databaseURL)
	if err != nil {
		return nil, err
	}

	switch t.dialect {
	case Postgres:
		pool, err := NewPool(ctx, t.dsn)
		if err != nil {
			return nil, err
		}

		return NewPgConn(pool), nil
	case SQLite:
		return openSQL(ctx, t)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, t.dialect)
	}
}

// WithConnection opens a connection, hands it to fn, and closes it afterwards
// whether fn succeeds, fails, or panics.
func WithConnection(ctx context.Context, databaseURL string, fn func(Conn) error) error {
	conn, err := Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn)
}
