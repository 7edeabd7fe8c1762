package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aqasim81/routedb/internal/database"
	"github.com/aqasim81/routedb/internal/migration"
)

// StatusApplied marks a unit that ran to completion.
const StatusApplied = "applied"

// AppliedMigration is a row of the schema_migrations ledger.
type AppliedMigration struct {
	Version    string
	Filename   string
	Checksum   string
	AppliedAt  time.Time
	DurationMs int
	Status     string
}

// RecordParams contains the fields needed to record a unit as applied.
type RecordParams struct {
	Version    string
	Filename   string
	Checksum   string
	DurationMs int
}

// Tracker manages the schema_migrations ledger over any supported dialect.
type Tracker struct {
	conn database.Conn
}

// New creates a Tracker on the given connection.
func New(conn database.Conn) *Tracker {
	return &Tracker{conn: conn}
}

func (t *Tracker) q(query string) string {
	return database.Rebind(t.conn.Dialect(), query)
}

// EnsureTable creates the ledger table if it does not exist.
func (t *Tracker) EnsureTable(ctx context.Context) error {
	if _, err := t.conn.Exec(ctx, createSchemaSQL(t.conn.Dialect())); err != nil {
		return fmt.Errorf("%w: %w", ErrTableCreation, err)
	}

	return nil
}

// IsApplied checks whether a unit version has been recorded as applied.
func (t *Tracker) IsApplied(ctx context.Context, version string) (bool, error) {
	var n int

	err := t.conn.QueryRow(ctx,
		t.q(`SELECT COUNT(*) FROM schema_migrations WHERE version = ? AND status = 'applied'`),
		version,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking if unit %s is applied: %w", version, err)
	}

	return n > 0, nil
}

// GetApplied returns all applied units ordered numerically by version.
func (t *Tracker) GetApplied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := t.conn.Query(ctx,
		`SELECT version, filename, checksum, applied_at, duration_ms, status
		 FROM schema_migrations
		 WHERE status = 'applied'
		 ORDER BY version`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying applied units: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration

	for rows.Next() {
		var m AppliedMigration
		if err := rows.Scan(&m.Version, &m.Filename, &m.Checksum, &m.AppliedAt, &m.DurationMs, &m.Status); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}

		applied = append(applied, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning applied units: %w", err)
	}

	// The version column is text; "10" sorts before "2" in SQL.
	sort.SliceStable(applied, func(i, j int) bool {
		return migration.CompareVersions(applied[i].Version, applied[j].Version) < 0
	})

	return applied, nil
}

// RecordApplied inserts or refreshes the ledger row for a unit.
func (t *Tracker) RecordApplied(ctx context.Context, p RecordParams) error {
	_, err := t.conn.Exec(ctx,
		t.q(`INSERT INTO schema_migrations (version, filename, checksum, duration_ms, status)
		 VALUES (?, ?, ?, ?, 'applied')
		 ON CONFLICT (version) DO UPDATE SET
		     filename = EXCLUDED.filename,
		     checksum = EXCLUDED.checksum,
		     applied_at = CURRENT_TIMESTAMP,
		     duration_ms = EXCLUDED.duration_ms,
		     status = 'applied'`),
		p.Version, p.Filename, p.Checksum, p.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("recording unit %s as applied: %w", p.Version, err)
	}

	return nil
}

// GetChecksum returns the recorded checksum for a unit version.
func (t *Tracker) GetChecksum(ctx context.Context, version string) (string, error) {
	var checksum string

	err := t.conn.QueryRow(ctx,
		t.q(`SELECT checksum FROM schema_migrations WHERE version = ?`),
		version,
	).Scan(&checksum)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return "", fmt.Errorf("unit %s: %w", version, ErrMigrationNotFound)
		}

		return "", fmt.Errorf("getting checksum for unit %s: %w", version, err)
	}

	return checksum, nil
}
