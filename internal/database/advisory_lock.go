package database

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LockKey names the advisory lock shared by every routedb process pointed at
// the same database.
const LockKey = "routedb:apply"

// lockID folds LockKey into the bigint key space pg_try_advisory_lock expects.
func lockID() int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(LockKey))

	return int64(h.Sum64()) //nolint:gosec // wraparound is fine for a lock key
}

// PgLock holds a session-level advisory lock on a dedicated pooled
// connection until Release is called.
type PgLock struct {
	conn *pgxpool.Conn
	id   int64
}

// TryAcquireLock takes the advisory lock without blocking. It returns
// ErrLockNotAcquired when another session holds it.
func TryAcquireLock(ctx context.Context, pool *pgxpool.Pool) (*PgLock, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for advisory lock: %w", err)
	}

	id := lockID()

	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", id).Scan(&ok); err != nil {
		conn.Release()

		return nil, fmt.Errorf("executing pg_try_advisory_lock: %w", err)
	}

	if !ok {
		conn.Release()

		return nil, ErrLockNotAcquired
	}

	return &PgLock{conn: conn, id: id}, nil
}

// Release unlocks and hands the connection back. Repeated calls are no-ops.
func (l *PgLock) Release(ctx context.Context) error {
	if l == nil || l.conn == nil {
		return nil
	}

	_, err := l.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", l.id)
	l.conn.Release()
	l.conn = nil

	if err != nil {
		return fmt.Errorf("releasing advisory lock: %w", err)
	}

	return nil
}

// noopLock is used by backends with a single writer, where the database
// file lock already serializes runs.
type noopLock struct{}

func (noopLock) Release(context.Context) error { return nil }
