package schema

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormschema "gorm.io/gorm/schema"

	"github.com/aqasim81/routedb/internal/models"
)

// gormColumnType lets fakeColumn embed gorm.ColumnType under a field name
// that does not collide with its ColumnType method.
type gormColumnType = gorm.ColumnType

type fakeColumn struct {
	gormColumnType

	name     string
	typ      string
	nullable bool
}

func (c fakeColumn) Name() string               { return c.name }
func (c fakeColumn) DatabaseTypeName() string   { return c.typ }
func (c fakeColumn) ColumnType() (string, bool) { return c.typ, true }
func (c fakeColumn) Length() (int64, bool)      { return 0, false }
func (c fakeColumn) Nullable() (bool, bool)     { return c.nullable, true }

// fakeMigrator keeps an in-memory table of column types.
type fakeMigrator struct {
	table     bool
	columns   map[string]string
	created   int
	added     []string
	migrated  []string
	alterTo   map[string]string
	addErr    error
	createErr error
}

func (f *fakeMigrator) HasTable(any) bool { return f.table }

func (f *fakeMigrator) CreateTable(...any) error {
	if f.createErr != nil {
		return f.createErr
	}

	f.created++
	f.table = true

	return nil
}

func (f *fakeMigrator) HasColumn(_ any, field string) bool {
	_, ok := f.columns[field]

	return ok
}

func (f *fakeMigrator) AddColumn(_ any, field string) error {
	if f.addErr != nil {
		return f.addErr
	}

	f.added = append(f.added, field)
	f.columns[field] = "text"

	return nil
}

func (f *fakeMigrator) ColumnTypes(any) ([]gorm.ColumnType, error) {
	out := make([]gorm.ColumnType, 0, len(f.columns))
	for name, typ := range f.columns {
		out = append(out, fakeColumn{name: name, typ: typ, nullable: true})
	}

	return out, nil
}

func (f *fakeMigrator) MigrateColumn(_ any, field *gormschema.Field, _ gorm.ColumnType) error {
	f.migrated = append(f.migrated, field.DBName)

	if to, ok := f.alterTo[field.DBName]; ok {
		f.columns[field.DBName] = to
	}

	return nil
}

func newTestSynchronizer(m Migrator) *Synchronizer {
	s := &Synchronizer{log: zap.NewNop(), cache: &sync.Map{}}
	s.migrator = func(context.Context) (Migrator, error) { return m, nil }

	return s
}

func transaccionesColumns() map[string]string {
	return map[string]string{
		"id":             "bigint",
		"cierre_caja_id": "bigint",
		"frecuencia_id":  "bigint",
		"monto":          "numeric(10,2)",
		"metodo_pago":    "varchar(20)",
		"created_at":     "timestamptz",
	}
}

func TestSync_missingTable_createsIt(t *testing.T) {
	t.Parallel()

	m := &fakeMigrator{columns: map[string]string{}}

	report, err := newTestSynchronizer(m).Sync(context.Background(), "transacciones", Options{})
	require.NoError(t, err)

	assert.True(t, report.CreatedTable)
	assert.Equal(t, 1, m.created)
	assert.Empty(t, report.AddedColumns)
	assert.True(t, report.Changed())
}

func TestSync_missingColumn_addsOnlyThatColumn(t *testing.T) {
	t.Parallel()

	m := &fakeMigrator{table: true, columns: transaccionesColumns()}
	s := newTestSynchronizer(m)

	report, err := s.Sync(context.Background(), "transacciones", Options{})
	require.NoError(t, err)

	assert.False(t, report.CreatedTable)
	assert.Equal(t, []string{"comprobante"}, report.AddedColumns)
	assert.Empty(t, m.migrated, "no alter without AllowAlter")

	again, err := s.Sync(context.Background(), "transacciones", Options{})
	require.NoError(t, err)
	assert.False(t, again.Changed())
	assert.Equal(t, []string{"transacciones: up to date"}, again.Lines())
}

func TestSync_allowAlter_reportsOnlyChangedColumns(t *testing.T) {
	t.Parallel()

	cols := transaccionesColumns()
	cols["comprobante"] = "varchar(100)"

	m := &fakeMigrator{
		table:   true,
		columns: cols,
		alterTo: map[string]string{"comprobante": "varchar(255)"},
	}

	report, err := newTestSynchronizer(m).Sync(context.Background(), "transacciones", Options{AllowAlter: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"comprobante"}, report.AlteredColumns)
	assert.Contains(t, m.migrated, "monto")
	assert.Contains(t, report.Lines(), "transacciones: altered columns comprobante")
}

func TestSync_unknownModel(t *testing.T) {
	t.Parallel()

	_, err := newTestSynchronizer(&fakeMigrator{}).Sync(context.Background(), "pasajes", Options{})
	require.ErrorIs(t, err, models.ErrUnknownModel)
}

func TestSync_migratorErrorsAreWrapped(t *testing.T) {
	t.Parallel()

	boom := errors.New("permission denied")

	_, err := newTestSynchronizer(&fakeMigrator{createErr: boom, columns: map[string]string{}}).
		Sync(context.Background(), "rutas", Options{})
	require.ErrorIs(t, err, ErrSyncFailed)
	require.ErrorIs(t, err, boom)

	_, err = newTestSynchronizer(&fakeMigrator{table: true, addErr: boom, columns: map[string]string{}}).
		Sync(context.Background(), "rutas", Options{})
	require.ErrorIs(t, err, ErrSyncFailed)
	require.ErrorIs(t, err, boom)
}

func TestSync_openFailureIsReturned(t *testing.T) {
	t.Parallel()

	s := newTestSynchronizer(nil)
	s.migrator = func(context.Context) (Migrator, error) { return nil, ErrSyncUnsupported }

	_, err := s.Sync(context.Background(), "rutas", Options{})
	require.ErrorIs(t, err, ErrSyncUnsupported)
}
