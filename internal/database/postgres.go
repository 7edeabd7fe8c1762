package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

const defaultMaxConns = 5

// NewPool creates a pgx connection pool for the given database URL.
// It parses the connection string, sets a conservative max connection limit,
// and pings the database to verify connectivity.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
	}

	poolCfg.MaxConns = defaultMaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return pool, nil
}

// PgConn is a Conn backed by a pgx pool.
type PgConn struct {
	pool *pgxpool.Pool

	sqlOnce sync.Once
	sqlDB   *sql.DB
}

// NewPgConn wraps an already-connected pool.
func NewPgConn(pool *pgxpool.Pool) *PgConn {
	return &PgConn{pool: pool}
}

// Pool returns the underlying pgx pool.
func (c *PgConn) Pool() *pgxpool.Pool { return c.pool }

// Dialect returns Postgres.
func (c *PgConn) Dialect() Dialect { return Postgres }

// Exec runs sql on the pool. Without arguments pgx uses the simple protocol,
// so multi-statement strings are accepted.
func (c *PgConn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := c.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// Query runs sql and returns the result rows.
func (c *PgConn) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// QueryRow runs sql and returns at most one row.
func (c *PgConn) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return pgRow{row: c.pool.QueryRow(ctx, sql, args...)}
}

// InTransaction runs fn in a transaction. Timeouts are applied with SET LOCAL
// so they end with the transaction.
func (c *PgConn) InTransaction(ctx context.Context, t Timeouts, fn func(Execer) error) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // rollback on committed tx returns ErrTxClosed

	exec := pgTxExecer{tx: tx}

	if t.Lock > 0 {
		if _, err := exec.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", t.Lock.Milliseconds())); err != nil {
			return fmt.Errorf("setting lock_timeout: %w", err)
		}
	}

	if t.Statement > 0 {
		if _, err := exec.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", t.Statement.Milliseconds())); err != nil {
			return fmt.Errorf("setting statement_timeout: %w", err)
		}
	}

	if err := fn(exec); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// AcquireLock takes the session-level advisory lock.
func (c *PgConn) AcquireLock(ctx context.Context) (Releaser, error) {
	return TryAcquireLock(ctx, c.pool)
}

// SQLDB returns a database/sql view of the pool, created on first use.
func (c *PgConn) SQLDB() *sql.DB {
	c.sqlOnce.Do(func() {
		c.sqlDB = stdlib.OpenDBFromPool(c.pool)
	})

	return c.sqlDB
}

// Close releases the database/sql view (if any) and then the pool.
func (c *PgConn) Close() {
	if c.sqlDB != nil {
		_ = c.sqlDB.Close()
	}

	c.pool.Close()
}

type pgTxExecer struct {
	tx pgx.Tx
}

func (e pgTxExecer) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := e.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

type pgRow struct {
	row pgx.Row
}

func (r pgRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}

	return err
}
