package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ParseResult holds the parsed AST and original SQL.
type ParseResult struct {
	Stmts []*pg_query.RawStmt
	SQL   string
}

// Parse parses a PostgreSQL SQL string and returns the AST.
// Returns an empty result (zero statements) for empty or whitespace-only input.
func Parse(sql string) (*ParseResult, error) {
	if strings.TrimSpace(sql) == "" {
		return &ParseResult{SQL: sql}, nil
	}

	tree, err := pg_query.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	return &ParseResult{
		Stmts: tree.Stmts,
		SQL:   sql,
	}, nil
}

// StmtText returns the source text of the idx-th statement, including any
// comments that precede it. Locations are byte offsets into SQL.
func (r *ParseResult) StmtText(idx int) string {
	if idx < 0 || idx >= len(r.Stmts) {
		return ""
	}

	start := int(r.Stmts[idx].StmtLocation)

	end := len(r.SQL)
	if idx+1 < len(r.Stmts) {
		end = int(r.Stmts[idx+1].StmtLocation)
	}

	if start > len(r.SQL) || end > len(r.SQL) || start >= end {
		return ""
	}

	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(r.SQL[start:end]), ";"))
}
