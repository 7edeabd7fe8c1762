package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Registers the "libsql" driver for remote libSQL / Turso databases.
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"
)

// SQLConn is a Conn over database/sql, used for SQLite and libSQL.
type SQLConn struct {
	db      *sql.DB
	dialect Dialect
}

func openSQL(ctx context.Context, t target) (*SQLConn, error) {
	db, err := sql.Open(t.driver, t.dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
	}

	// One writer; also keeps ":memory:" pointing at a single database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return &SQLConn{db: db, dialect: t.dialect}, nil
}

// NewSQLConn wraps an open *sql.DB speaking the SQLite dialect.
func NewSQLConn(db *sql.DB) *SQLConn {
	return &SQLConn{db: db, dialect: SQLite}
}

// Dialect returns SQLite.
func (c *SQLConn) Dialect() Dialect { return c.dialect }

// Exec runs a statement and returns the affected row count.
func (c *SQLConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return execSQL(ctx, c.db, query, args...)
}

// Query runs a query and returns its rows.
func (c *SQLConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return sqlRows{rows: rows}, nil
}

// QueryRow runs a query returning at most one row.
func (c *SQLConn) QueryRow(ctx context.Context, query string, args ...any) Row {
	return sqlRow{row: c.db.QueryRowContext(ctx, query, args...)}
}

// InTransaction runs fn inside BEGIN/COMMIT. SQLite has no statement timeout;
// the lock timeout maps onto busy_timeout.
func (c *SQLConn) InTransaction(ctx context.Context, t Timeouts, fn func(Execer) error) error {
	if t.Lock > 0 {
		if _, err := c.db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", t.Lock.Milliseconds())); err != nil {
			return fmt.Errorf("setting busy_timeout: %w", err)
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(sqlTxExecer{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// AcquireLock is a no-op: the connection is capped at one and SQLite
// serializes writers on the database file.
func (c *SQLConn) AcquireLock(context.Context) (Releaser, error) {
	return noopLock{}, nil
}

// SQLDB returns the underlying handle.
func (c *SQLConn) SQLDB() *sql.DB { return c.db }

// Close closes the handle.
func (c *SQLConn) Close() { _ = c.db.Close() }

type sqlExecContext interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execSQL(ctx context.Context, db sqlExecContext, query string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		// Some DDL reports no count.
		return 0, nil //nolint:nilerr // a missing count is not a failure
	}

	return n, nil
}

type sqlTxExecer struct {
	tx *sql.Tx
}

func (e sqlTxExecer) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return execSQL(ctx, e.tx, query, args...)
}

type sqlRow struct {
	row *sql.Row
}

func (r sqlRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}

	return err
}

type sqlRows struct {
	rows *sql.Rows
}

func (r sqlRows) Next() bool             { return r.rows.Next() }
func (r sqlRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r sqlRows) Err() error             { return r.rows.Err() }
func (r sqlRows) Close()                 { _ = r.rows.Close() }
