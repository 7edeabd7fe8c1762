package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aqasim81/routedb/internal/migration"
)

func TestComputeChecksum(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		check func(t *testing.T, checksum string)
	}{
		{
			name:  "produces 64-char hex string",
			input: "ALTER TABLE transacciones ADD COLUMN comprobante TEXT;",
			check: func(t *testing.T, checksum string) {
				t.Helper()
				assert.Regexp(t, `^[0-9a-f]{64}$`, checksum)
			},
		},
		{
			name:  "deterministic for same input",
			input: "SELECT 1",
			check: func(t *testing.T, checksum string) {
				t.Helper()
				assert.Equal(t, checksum, migration.ComputeChecksum("SELECT 1"))
			},
		},
		{
			name:  "empty input has the well-known digest",
			input: "",
			check: func(t *testing.T, checksum string) {
				t.Helper()
				assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", checksum)
			},
		},
		{
			name:  "whitespace matters",
			input: "SELECT 1",
			check: func(t *testing.T, checksum string) {
				t.Helper()
				assert.NotEqual(t, checksum, migration.ComputeChecksum("SELECT 1 "))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tt.check(t, migration.ComputeChecksum(tt.input))
		})
	}
}

func TestOperation_Describe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		op   migration.Operation
		want string
	}{
		{
			name: "sql skips leading comments",
			op:   migration.Operation{Kind: migration.KindSQL, SQL: "-- note\nALTER TABLE t ADD COLUMN c TEXT"},
			want: "ALTER TABLE t ADD COLUMN c TEXT",
		},
		{
			name: "filtered update lists sorted where keys",
			op: migration.Operation{Kind: migration.KindUpdate, Update: &migration.DataUpdate{
				Table: "frecuencias",
				Set:   map[string]any{"estado": "inactiva"},
				Where: map[string]any{"propietario_tipo": "conductor", "estado": "activa"},
			}},
			want: "update frecuencias where estado, propietario_tipo",
		},
		{
			name: "all-rows update",
			op: migration.Operation{Kind: migration.KindUpdate, Update: &migration.DataUpdate{
				Table: "rutas", Set: map[string]any{"activa": true}, AllRows: true,
			}},
			want: "update rutas (all rows)",
		},
		{
			name: "sync",
			op:   migration.Operation{Kind: migration.KindSync, Sync: &migration.ModelSync{Model: "usuarios"}},
			want: "sync usuarios",
		},
		{
			name: "sync allow alter",
			op:   migration.Operation{Kind: migration.KindSync, Sync: &migration.ModelSync{Model: "usuarios", AllowAlter: true}},
			want: "sync usuarios (allow alter)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.op.Describe())
		})
	}
}
