//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aqasim81/routedb/internal/database"
	"github.com/aqasim81/routedb/internal/migration"
	"github.com/aqasim81/routedb/internal/parser"
)

const (
	postgresImage = "postgres:16-alpine"
	testDB        = "migrate_test"
	testUser      = "migrate"
	testPassword  = "migrate"
)

// SetupPostgresDSN starts a PostgreSQL 16 container and returns its connection
// string. The container is terminated when the test completes.
func SetupPostgresDSN(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       testDB,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return "postgres://" + testUser + ":" + testPassword + "@" + host + ":" + port.Port() + "/" + testDB + "?sslmode=disable"
}

// SetupPostgres starts a container and returns an open connection to it,
// closed on cleanup.
func SetupPostgres(t *testing.T) *database.PgConn {
	t.Helper()

	pool, err := database.NewPool(context.Background(), SetupPostgresDSN(t))
	require.NoError(t, err)

	conn := database.NewPgConn(pool)
	t.Cleanup(conn.Close)

	return conn
}

// mustExec runs a setup statement.
func mustExec(t *testing.T, conn database.Conn, sql string, args ...any) {
	t.Helper()

	_, err := conn.Exec(context.Background(), sql, args...)
	require.NoError(t, err)
}

// sqlUnit builds a unit of SQL operations the way the loader would.
func sqlUnit(t *testing.T, version, name, sql string) migration.Unit {
	t.Helper()

	stmts, err := parser.Split(sql)
	require.NoError(t, err)

	ops := make([]migration.Operation, len(stmts))
	for i, s := range stmts {
		ops[i] = migration.Operation{
			Kind:            migration.KindSQL,
			SQL:             s.SQL,
			Idempotent:      s.Idempotent,
			MissingTargetOK: s.MissingTargetOK,
			NoTransaction:   s.NoTransaction,
		}
	}

	return migration.Unit{
		Version:    version,
		Name:       name,
		Operations: ops,
		Checksum:   migration.ComputeChecksum(sql),
		FilePath:   "migrations/V" + version + "_" + name + ".sql",
	}
}
