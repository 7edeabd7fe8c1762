package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/routedb/internal/parser"
)

func TestSplit_inference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		sql               string
		wantIdempotent    bool
		wantNoTransaction bool
	}{
		{"add column if not exists", "ALTER TABLE transacciones ADD COLUMN IF NOT EXISTS comprobante TEXT", true, false},
		{"add column unguarded", "ALTER TABLE transacciones ADD COLUMN comprobante TEXT", false, false},
		{"drop column if exists", "ALTER TABLE usuarios DROP COLUMN IF EXISTS apodo", true, false},
		{"set not null", "ALTER TABLE rutas ALTER COLUMN nombre SET NOT NULL", true, false},
		{"create table if not exists", "CREATE TABLE IF NOT EXISTS cierres_caja (id SERIAL PRIMARY KEY)", true, false},
		{"create table unguarded", "CREATE TABLE cierres_caja (id SERIAL PRIMARY KEY)", false, false},
		{"create index if not exists", "CREATE INDEX IF NOT EXISTS idx_rutas_nombre ON rutas (nombre)", true, false},
		{"create index concurrently", "CREATE INDEX CONCURRENTLY idx_rutas_nombre ON rutas (nombre)", false, true},
		{"create enum", "CREATE TYPE estado_ticket AS ENUM ('activo', 'usado')", false, false},
		{"enum add value guarded", "ALTER TYPE estado_ticket ADD VALUE IF NOT EXISTS 'anulado'", true, true},
		{"enum add value unguarded", "ALTER TYPE estado_ticket ADD VALUE 'anulado'", false, true},
		{"enum rename value", "ALTER TYPE estado_ticket RENAME VALUE 'usado' TO 'validado'", false, false},
		{"drop table if exists", "DROP TABLE IF EXISTS tickets_tmp", true, false},
		{"drop table", "DROP TABLE tickets_tmp", false, false},
		{"create or replace view", "CREATE OR REPLACE VIEW v_rutas AS SELECT 1", true, false},
		{"create extension", "CREATE EXTENSION IF NOT EXISTS pgcrypto", true, false},
		{"update constant", "UPDATE frecuencias SET estado = 'inactiva' WHERE conductor_id = 7", true, false},
		{"update arithmetic", "UPDATE cierres_caja SET total = total + 1 WHERE id = 1", false, false},
		{"delete", "DELETE FROM frecuencias WHERE conductor_id = 7", true, false},
		{"vacuum", "VACUUM frecuencias", false, true},
		{"directive", "-- +idempotent\nALTER TYPE estado_ticket RENAME VALUE 'usado' TO 'validado'", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stmts, err := parser.Split(tt.sql)
			require.NoError(t, err)
			require.Len(t, stmts, 1)

			assert.Equal(t, tt.wantIdempotent, stmts[0].Idempotent, "idempotent")
			assert.Equal(t, tt.wantNoTransaction, stmts[0].NoTransaction, "no transaction")
			assert.NotNil(t, stmts[0].Node)
		})
	}
}

func TestSplit_missingTargetOK(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sql  string
		want bool
	}{
		{"drop table", "DROP TABLE tickets_tmp", true},
		{"drop type if exists", "DROP TYPE IF EXISTS estado_viejo", true},
		{"drop column", "ALTER TABLE usuarios DROP COLUMN apodo", true},
		{"drop column and constraint", "ALTER TABLE usuarios DROP COLUMN apodo, DROP CONSTRAINT usuarios_apodo_key", true},
		{"drop column and add column", "ALTER TABLE usuarios DROP COLUMN apodo, ADD COLUMN alias TEXT", false},
		{"enum rename value", "ALTER TYPE estado_ticket RENAME VALUE 'usado' TO 'validado'", true},
		{"enum add value guarded", "ALTER TYPE estado_ticket ADD VALUE IF NOT EXISTS 'anulado'", false},
		{"create index if not exists", "CREATE INDEX IF NOT EXISTS idx_x ON rutaz (nombre)", false},
		{"create table if not exists", "CREATE TABLE IF NOT EXISTS cierres_caja (id SERIAL PRIMARY KEY)", false},
		{"add column if not exists", "ALTER TABLE transacciones ADD COLUMN IF NOT EXISTS comprobante TEXT", false},
		{"update constant", "UPDATE frecuencia SET estado = 'inactiva' WHERE conductor_id = 7", false},
		{"delete", "DELETE FROM frecuencias WHERE conductor_id = 7", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stmts, err := parser.Split(tt.sql)
			require.NoError(t, err)
			require.Len(t, stmts, 1)

			assert.Equal(t, tt.want, stmts[0].MissingTargetOK)
			assert.Equal(t, tt.want, parser.RemovesTarget(stmts[0].Node))
		})
	}
}

func TestRemovesTarget_nilNode(t *testing.T) {
	t.Parallel()

	assert.False(t, parser.RemovesTarget(nil))
}

func TestSplit_multipleStatementsKeepOrder(t *testing.T) {
	t.Parallel()

	sql := `CREATE TYPE estado_ticket AS ENUM ('activo');
ALTER TABLE frecuencias ADD COLUMN IF NOT EXISTS estado estado_ticket;
-- +no-transaction
UPDATE frecuencias SET estado = 'activo' WHERE estado IS NULL;`

	stmts, err := parser.Split(sql)
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	assert.Contains(t, stmts[0].SQL, "CREATE TYPE")
	assert.Contains(t, stmts[1].SQL, "ADD COLUMN IF NOT EXISTS")
	assert.Contains(t, stmts[2].SQL, "UPDATE frecuencias")
	assert.True(t, stmts[2].NoTransaction)
	assert.NotContains(t, stmts[2].SQL, ";")
}

func TestSplit_nonPostgresFallsBack(t *testing.T) {
	t.Parallel()

	sql := `CREATE TABLE t (id INTEGER PRIMARY KEY AUTOINCREMENT, note TEXT DEFAULT 'a;b');
-- +idempotent
INSERT OR IGNORE INTO t (note) VALUES ('x');
-- trailing comment only`

	stmts, err := parser.Split(sql)
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assert.Contains(t, stmts[0].SQL, "'a;b'")
	assert.False(t, stmts[0].Idempotent)
	assert.Nil(t, stmts[0].Node)
	assert.True(t, stmts[1].Idempotent)
}

func TestSplit_empty(t *testing.T) {
	t.Parallel()

	stmts, err := parser.Split("  \n ")
	require.NoError(t, err)
	assert.Empty(t, stmts)
}

func TestStrictSplit_rejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := parser.StrictSplit("SELECT * FROM WHERE;")
	require.ErrorIs(t, err, parser.ErrParse)
}

func TestIsUnfilteredUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sql  string
		want bool
	}{
		{"UPDATE rutas SET activa = false", true},
		{"UPDATE rutas SET activa = false WHERE id = 1", false},
		{"DELETE FROM frecuencias", true},
		{"DELETE FROM frecuencias WHERE conductor_id = 3", false},
		{"SELECT 1", false},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			t.Parallel()

			stmts, err := parser.Split(tt.sql)
			require.NoError(t, err)
			require.Len(t, stmts, 1)

			assert.Equal(t, tt.want, parser.IsUnfilteredUpdate(stmts[0].Node))
		})
	}
}
