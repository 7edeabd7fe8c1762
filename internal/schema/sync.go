// Package schema reconciles declared models with live tables through gorm's
// migrator. Tables and columns are only ever added; existing columns are
// altered only on request and nothing is dropped.
package schema

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormschema "gorm.io/gorm/schema"

	"github.com/aqasim81/routedb/internal/database"
	"github.com/aqasim81/routedb/internal/models"
)

// Migrator is the part of gorm.Migrator the synchronizer uses.
type Migrator interface {
	HasTable(dst any) bool
	CreateTable(dst ...any) error
	HasColumn(dst any, field string) bool
	AddColumn(dst any, field string) error
	ColumnTypes(dst any) ([]gorm.ColumnType, error)
	MigrateColumn(dst any, field *gormschema.Field, columnType gorm.ColumnType) error
}

// Options controls how far Sync may go.
type Options struct {
	// AllowAlter lets Sync change the type, size or nullability of existing
	// columns to match the model.
	AllowAlter bool
}

// Report describes what a Sync call changed.
type Report struct {
	Model          string
	CreatedTable   bool
	AddedColumns   []string
	AlteredColumns []string
}

// Changed reports whether anything was modified.
func (r Report) Changed() bool {
	return r.CreatedTable || len(r.AddedColumns) > 0 || len(r.AlteredColumns) > 0
}

// Lines renders the report for console output.
func (r Report) Lines() []string {
	if !r.Changed() {
		return []string{fmt.Sprintf("%s: up to date", r.Model)}
	}

	var lines []string
	if r.CreatedTable {
		lines = append(lines, fmt.Sprintf("%s: created table", r.Model))
	}

	if len(r.AddedColumns) > 0 {
		lines = append(lines, fmt.Sprintf("%s: added columns %s", r.Model, strings.Join(r.AddedColumns, ", ")))
	}

	if len(r.AlteredColumns) > 0 {
		lines = append(lines, fmt.Sprintf("%s: altered columns %s", r.Model, strings.Join(r.AlteredColumns, ", ")))
	}

	return lines
}

type migratorFunc func(ctx context.Context) (Migrator, error)

// Synchronizer runs model syncs over an existing connection. The ORM handle
// is opened on first use.
type Synchronizer struct {
	log      *zap.Logger
	migrator migratorFunc
	cache    *sync.Map

	once sync.Once
	db   *gorm.DB
	err  error
}

// New returns a Synchronizer bound to conn. Nothing is opened until the
// first Sync.
func New(conn database.Conn, log *zap.Logger) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Synchronizer{log: log, cache: &sync.Map{}}
	s.migrator = func(ctx context.Context) (Migrator, error) {
		db, err := s.open(conn)
		if err != nil {
			return nil, err
		}

		return db.WithContext(ctx).Migrator(), nil
	}

	return s
}

func (s *Synchronizer) open(conn database.Conn) (*gorm.DB, error) {
	s.once.Do(func() {
		if conn.Dialect() != database.Postgres {
			s.err = fmt.Errorf("%w: connection is %s", ErrSyncUnsupported, conn.Dialect())

			return
		}

		s.db, s.err = gorm.Open(postgres.New(postgres.Config{Conn: conn.SQLDB()}), &gorm.Config{
			Logger:                 NewGormLogger(s.log),
			SkipDefaultTransaction: true,
			DisableAutomaticPing:   true,
		})
		if s.err != nil {
			s.err = fmt.Errorf("%w: opening ORM: %w", ErrSyncFailed, s.err)
		}
	})

	return s.db, s.err
}

// Sync brings the table of the named model up to date.
func (s *Synchronizer) Sync(ctx context.Context, name string, opts Options) (Report, error) {
	report := Report{Model: name}

	model, err := models.Lookup(name)
	if err != nil {
		return report, err
	}

	m, err := s.migrator(ctx)
	if err != nil {
		return report, err
	}

	if !m.HasTable(model) {
		if err := m.CreateTable(model); err != nil {
			return report, fmt.Errorf("%w: creating %s: %w", ErrSyncFailed, name, err)
		}

		report.CreatedTable = true
		s.log.Info("created table", zap.String("model", name))

		return report, nil
	}

	parsed, err := gormschema.Parse(model, s.cache, gormschema.NamingStrategy{})
	if err != nil {
		return report, fmt.Errorf("%w: parsing model %s: %w", ErrSyncFailed, name, err)
	}

	for _, dbName := range parsed.DBNames {
		field := parsed.FieldsByDBName[dbName]
		if field == nil || field.IgnoreMigration || m.HasColumn(model, dbName) {
			continue
		}

		if err := m.AddColumn(model, dbName); err != nil {
			return report, fmt.Errorf("%w: adding %s.%s: %w", ErrSyncFailed, name, dbName, err)
		}

		report.AddedColumns = append(report.AddedColumns, dbName)
		s.log.Info("added column", zap.String("model", name), zap.String("column", dbName))
	}

	if !opts.AllowAlter {
		return report, nil
	}

	altered, err := s.alterColumns(m, model, parsed, report.AddedColumns)
	report.AlteredColumns = altered

	return report, err
}

// alterColumns lets the migrator rewrite existing columns and reports which
// ones actually changed by comparing column types before and after.
func (s *Synchronizer) alterColumns(m Migrator, model any, parsed *gormschema.Schema, skip []string) ([]string, error) {
	before, err := m.ColumnTypes(model)
	if err != nil {
		return nil, fmt.Errorf("%w: reading columns of %s: %w", ErrSyncFailed, parsed.Table, err)
	}

	skipped := make(map[string]bool, len(skip))
	for _, c := range skip {
		skipped[c] = true
	}

	existing := make(map[string]gorm.ColumnType, len(before))
	for _, ct := range before {
		existing[ct.Name()] = ct
	}

	var touched []string

	for _, dbName := range parsed.DBNames {
		field := parsed.FieldsByDBName[dbName]
		ct, ok := existing[dbName]

		if field == nil || field.IgnoreMigration || !ok || skipped[dbName] {
			continue
		}

		if err := m.MigrateColumn(model, field, ct); err != nil {
			return nil, fmt.Errorf("%w: altering %s.%s: %w", ErrSyncFailed, parsed.Table, dbName, err)
		}

		touched = append(touched, dbName)
	}

	if len(touched) == 0 {
		return nil, nil
	}

	after, err := m.ColumnTypes(model)
	if err != nil {
		return nil, fmt.Errorf("%w: reading columns of %s: %w", ErrSyncFailed, parsed.Table, err)
	}

	now := make(map[string]string, len(after))
	for _, ct := range after {
		now[ct.Name()] = signature(ct)
	}

	var altered []string

	for _, name := range touched {
		if now[name] != signature(existing[name]) {
			altered = append(altered, name)
			s.log.Info("altered column", zap.String("table", parsed.Table), zap.String("column", name))
		}
	}

	return altered, nil
}

func signature(ct gorm.ColumnType) string {
	typ, ok := ct.ColumnType()
	if !ok || typ == "" {
		typ = ct.DatabaseTypeName()
	}

	length, _ := ct.Length()
	nullable, _ := ct.Nullable()

	return fmt.Sprintf("%s/%d/%t", strings.ToLower(typ), length, nullable)
}
