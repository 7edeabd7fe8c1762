package tracker

import "errors"

// ErrMigrationNotFound indicates no ledger row exists for the given version.
var ErrMigrationNotFound = errors.New("unit not found in schema_migrations")

// ErrChecksumMismatch indicates a unit file changed after it was applied.
var ErrChecksumMismatch = errors.New("unit checksum mismatch")

// ErrTableCreation indicates the schema_migrations table could not be created.
var ErrTableCreation = errors.New("creating schema_migrations table")
