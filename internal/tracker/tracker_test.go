package tracker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/routedb/internal/database"
	"github.com/aqasim81/routedb/internal/tracker"
)

func newLedger(t *testing.T) (*tracker.Tracker, database.Conn) {
	t.Helper()

	conn, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	tr := tracker.New(conn)
	require.NoError(t, tr.EnsureTable(context.Background()))

	return tr, conn
}

func TestEnsureTable_isIdempotent(t *testing.T) {
	t.Parallel()

	tr, _ := newLedger(t)

	require.NoError(t, tr.EnsureTable(context.Background()))
}

func TestRecordApplied_andQuery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tr, _ := newLedger(t)

	applied, err := tr.IsApplied(ctx, "001")
	require.NoError(t, err)
	assert.False(t, applied)

	require.NoError(t, tr.RecordApplied(ctx, tracker.RecordParams{
		Version:    "001",
		Filename:   "V001_add_comprobante_transacciones.sql",
		Checksum:   "abc",
		DurationMs: 12,
	}))

	applied, err = tr.IsApplied(ctx, "001")
	require.NoError(t, err)
	assert.True(t, applied)

	sum, err := tr.GetChecksum(ctx, "001")
	require.NoError(t, err)
	assert.Equal(t, "abc", sum)

	rows, err := tr.GetApplied(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "V001_add_comprobante_transacciones.sql", rows[0].Filename)
	assert.Equal(t, 12, rows[0].DurationMs)
	assert.Equal(t, tracker.StatusApplied, rows[0].Status)
	assert.WithinDuration(t, time.Now(), rows[0].AppliedAt, 24*time.Hour)
}

func TestRecordApplied_upsertsExistingVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tr, _ := newLedger(t)

	require.NoError(t, tr.RecordApplied(ctx, tracker.RecordParams{Version: "002", Filename: "a.sql", Checksum: "old", DurationMs: 1}))
	require.NoError(t, tr.RecordApplied(ctx, tracker.RecordParams{Version: "002", Filename: "a.sql", Checksum: "new", DurationMs: 2}))

	rows, err := tr.GetApplied(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "new", rows[0].Checksum)
}

func TestGetApplied_orderedByVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tr, _ := newLedger(t)

	for _, v := range []string{"003", "001", "002"} {
		require.NoError(t, tr.RecordApplied(ctx, tracker.RecordParams{Version: v, Filename: v + ".sql", Checksum: v}))
	}

	rows, err := tr.GetApplied(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "001", rows[0].Version)
	assert.Equal(t, "003", rows[2].Version)
}

func TestGetApplied_unpaddedVersionsOrderedNumerically(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tr, _ := newLedger(t)

	for _, v := range []string{"10", "2", "1"} {
		require.NoError(t, tr.RecordApplied(ctx, tracker.RecordParams{Version: v, Filename: v + ".sql", Checksum: v}))
	}

	rows, err := tr.GetApplied(ctx)
	require.NoError(t, err)

	versions := make([]string, len(rows))
	for i, r := range rows {
		versions[i] = r.Version
	}

	assert.Equal(t, []string{"1", "2", "10"}, versions)
}

func TestGetChecksum_missing(t *testing.T) {
	t.Parallel()

	tr, _ := newLedger(t)

	_, err := tr.GetChecksum(context.Background(), "999")
	require.ErrorIs(t, err, tracker.ErrMigrationNotFound)
}

func TestEnsureTable_closedConnection(t *testing.T) {
	t.Parallel()

	conn, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	conn.Close()

	err = tracker.New(conn).EnsureTable(context.Background())
	require.ErrorIs(t, err, tracker.ErrTableCreation)
}
