package rules_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqasim81/routedb/internal/analyzer"
	"github.com/aqasim81/routedb/internal/parser"
)

// checkSQL parses a single statement and runs one rule against it.
func checkSQL(t *testing.T, rule analyzer.Rule, sql string, pgVersion int) []analyzer.Finding {
	t.Helper()

	result, err := parser.Parse(sql)
	require.NoError(t, err)
	require.Len(t, result.Stmts, 1)

	ctx := &analyzer.RuleContext{
		TargetPGVersion: pgVersion,
		OpIndex:         2, //nolint:mnd // arbitrary, asserted by callers
		SQL:             sql,
	}

	return rule.Check(result.Stmts[0], ctx)
}
