package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/aqasim81/routedb/internal/database"
	"github.com/aqasim81/routedb/internal/migration"
	"github.com/aqasim81/routedb/internal/schema"
)

// opOutcome is what running an operation produced.
type opOutcome struct {
	rows    int64
	details []string
}

// executeOperation dispatches on the operation kind.
func (e *Executor) executeOperation(ctx context.Context, op *migration.Operation) (opOutcome, error) {
	switch op.Kind {
	case migration.KindSQL:
		return e.execSQLOp(ctx, op)
	case migration.KindUpdate:
		return e.execUpdateOp(ctx, op.Update)
	case migration.KindSync:
		return e.execSyncOp(ctx, op.Sync)
	default:
		return opOutcome{rows: NotApplicable}, fmt.Errorf("%w: %q", ErrUnknownOperation, op.Kind)
	}
}

// execSQLOp runs a statement in its own transaction, or directly on the
// connection when the statement refuses a transaction block.
func (e *Executor) execSQLOp(ctx context.Context, op *migration.Operation) (opOutcome, error) {
	var (
		n   int64
		err error
	)

	if op.NoTransaction {
		n, err = e.conn.Exec(ctx, op.SQL)
	} else {
		err = e.conn.InTransaction(ctx, e.timeouts(), func(tx database.Execer) error {
			var execErr error
			n, execErr = tx.Exec(ctx, op.SQL)

			return execErr
		})
	}

	if err != nil {
		return opOutcome{rows: NotApplicable}, err
	}

	if !touchesRows(op.SQL) {
		return opOutcome{rows: NotApplicable}, nil
	}

	return opOutcome{rows: n, details: []string{fmt.Sprintf("%d row(s) affected", n)}}, nil
}

func (e *Executor) execUpdateOp(ctx context.Context, u *migration.DataUpdate) (opOutcome, error) {
	query, args, err := BuildUpdate(e.conn.Dialect(), u)
	if err != nil {
		return opOutcome{rows: NotApplicable}, err
	}

	// SQLite reads a double-quoted unknown column as a string literal, so a
	// misspelled key would silently match nothing.
	if e.conn.Dialect() == database.SQLite {
		if err := e.checkUpdateColumns(ctx, u); err != nil {
			return opOutcome{rows: NotApplicable}, err
		}
	}

	var n int64

	err = e.conn.InTransaction(ctx, e.timeouts(), func(tx database.Execer) error {
		var execErr error
		n, execErr = tx.Exec(ctx, query, args...)

		return execErr
	})
	if err != nil {
		return opOutcome{rows: NotApplicable}, err
	}

	return opOutcome{rows: n, details: []string{fmt.Sprintf("%d row(s) updated in %s", n, u.Table)}}, nil
}

// checkUpdateColumns verifies that the table and every SET and WHERE column
// of u exist.
func (e *Executor) checkUpdateColumns(ctx context.Context, u *migration.DataUpdate) error {
	query := "SELECT name FROM pragma_table_info(?)"
	args := []any{u.Table}

	if schemaName, table, ok := strings.Cut(u.Table, "."); ok {
		query = "SELECT name FROM pragma_table_info(?, ?)"
		args = []any{table, schemaName}
	}

	rows, err := e.conn.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("reading columns of %s: %w", u.Table, err)
	}
	defer rows.Close()

	var columns []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("reading columns of %s: %w", u.Table, err)
		}

		columns = append(columns, name)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading columns of %s: %w", u.Table, err)
	}

	if len(columns) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownTable, u.Table)
	}

	for _, keys := range [][]string{migration.SortedKeys(u.Set), migration.SortedKeys(u.Where)} {
		for _, col := range keys {
			if !containsFold(columns, col) {
				return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, u.Table, col)
			}
		}
	}

	return nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}

	return false
}

func (e *Executor) execSyncOp(ctx context.Context, s *migration.ModelSync) (opOutcome, error) {
	if e.syncer == nil {
		return opOutcome{rows: NotApplicable}, schema.ErrSyncUnsupported
	}

	report, err := e.syncer.Sync(ctx, s.Model, schema.Options{AllowAlter: s.AllowAlter})
	if err != nil {
		return opOutcome{rows: NotApplicable}, err
	}

	return opOutcome{rows: NotApplicable, details: report.Lines()}, nil
}

// BuildUpdate renders a DataUpdate as a parameterized UPDATE. Columns are
// emitted in sorted order so the same update always yields the same SQL.
func BuildUpdate(d database.Dialect, u *migration.DataUpdate) (string, []any, error) {
	if u == nil || u.Table == "" || len(u.Set) == 0 {
		return "", nil, fmt.Errorf("%w: update needs a table and at least one column to set", ErrUnknownOperation)
	}

	if len(u.Where) == 0 && !u.AllRows {
		return "", nil, fmt.Errorf("%w: %s", ErrUnfilteredUpdate, u.Table)
	}

	var (
		b    strings.Builder
		args []any
	)

	b.WriteString("UPDATE ")
	b.WriteString(pgx.Identifier(strings.Split(u.Table, ".")).Sanitize())
	b.WriteString(" SET ")

	for i, col := range migration.SortedKeys(u.Set) {
		if i > 0 {
			b.WriteString(", ")
		}

		b.WriteString(pgx.Identifier{col}.Sanitize())
		b.WriteString(" = ?")

		args = append(args, u.Set[col])
	}

	for i, col := range migration.SortedKeys(u.Where) {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}

		b.WriteString(pgx.Identifier{col}.Sanitize())

		if u.Where[col] == nil {
			b.WriteString(" IS NULL")

			continue
		}

		b.WriteString(" = ?")

		args = append(args, u.Where[col])
	}

	return database.Rebind(d, b.String()), args, nil
}

// touchesRows reports whether a statement is DML, for which a row count is
// meaningful.
func touchesRows(sql string) bool {
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		fields := strings.Fields(line)
		switch strings.ToUpper(fields[0]) {
		case "UPDATE", "DELETE", "INSERT", "WITH":
			return true
		default:
			return false
		}
	}

	return false
}
