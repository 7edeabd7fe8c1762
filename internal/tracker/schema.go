package tracker

import "github.com/aqasim81/routedb/internal/database"

// TableName is the ledger table.
const TableName = "schema_migrations"

const createSchemaPostgres = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version      TEXT PRIMARY KEY,
    filename     TEXT NOT NULL,
    checksum     TEXT NOT NULL,
    applied_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    duration_ms  INTEGER NOT NULL,
    status       TEXT NOT NULL DEFAULT 'applied'
)`

// SQLite drivers only decode declared TIMESTAMP columns into time.Time.
const createSchemaSQLite = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version      TEXT PRIMARY KEY,
    filename     TEXT NOT NULL,
    checksum     TEXT NOT NULL,
    applied_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    duration_ms  INTEGER NOT NULL,
    status       TEXT NOT NULL DEFAULT 'applied'
)`

func createSchemaSQL(d database.Dialect) string {
	if d == database.Postgres {
		return createSchemaPostgres
	}

	return createSchemaSQLite
}
