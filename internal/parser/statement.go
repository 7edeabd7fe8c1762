package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Directives recognised in a comment directly above a statement.
const (
	DirectiveIdempotent    = "+idempotent"
	DirectiveNoTransaction = "+no-transaction"
)

// Statement is one executable statement split out of a SQL file.
type Statement struct {
	// SQL is the statement text without the trailing semicolon. Leading
	// comments are kept.
	SQL string
	// Idempotent is true when re-running the statement cannot fail or change
	// anything: IF [NOT] EXISTS, OR REPLACE, or an explicit directive.
	Idempotent bool
	// MissingTargetOK is true when the statement removes or renames away its
	// own target, so finding that target absent means it already ran.
	MissingTargetOK bool
	// NoTransaction is true for statements PostgreSQL refuses inside a
	// transaction block.
	NoTransaction bool
	// Node is the parsed statement; nil when the input was split without
	// the PostgreSQL parser.
	Node *pg_query.Node
}

// Split breaks sql into statements. PostgreSQL input is split with the real
// parser so each statement can be inspected. Input the parser rejects
// (SQLite-only syntax, for instance) falls back to a quote-aware split on
// semicolons; such statements are only idempotent by directive.
func Split(sql string) ([]Statement, error) {
	result, err := Parse(sql)
	if err != nil {
		return splitPlain(sql), nil //nolint:nilerr // non-PostgreSQL input is still splittable
	}

	stmts := make([]Statement, 0, len(result.Stmts))

	for i, raw := range result.Stmts {
		text := result.StmtText(i)
		if text == "" {
			continue
		}

		dirs := directives(text)

		stmts = append(stmts, Statement{
			SQL:             text,
			Idempotent:      dirs[DirectiveIdempotent] || IsIdempotent(raw.Stmt),
			MissingTargetOK: RemovesTarget(raw.Stmt),
			NoTransaction:   dirs[DirectiveNoTransaction] || RequiresNoTransaction(raw.Stmt),
			Node:            raw.Stmt,
		})
	}

	return stmts, nil
}

// StrictSplit is Split without the plain-text fallback.
func StrictSplit(sql string) ([]Statement, error) {
	if _, err := Parse(sql); err != nil {
		return nil, err
	}

	return Split(sql)
}

func splitPlain(sql string) []Statement {
	var (
		out     []Statement
		buf     strings.Builder
		quote   byte
		comment bool
	)

	flush := func() {
		text := strings.TrimSpace(buf.String())
		buf.Reset()

		if stripComments(text) == "" {
			return
		}

		dirs := directives(text)
		out = append(out, Statement{
			SQL:           text,
			Idempotent:    dirs[DirectiveIdempotent],
			NoTransaction: dirs[DirectiveNoTransaction],
		})
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]

		switch {
		case comment:
			buf.WriteByte(c)

			if c == '\n' {
				comment = false
			}
		case quote != 0:
			buf.WriteByte(c)

			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
			buf.WriteByte(c)
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			comment = true
			buf.WriteByte(c)
		case c == ';':
			flush()
		default:
			buf.WriteByte(c)
		}
	}

	flush()

	return out
}

// directives collects "-- +word" markers from the comment lines of a statement.
func directives(text string) map[string]bool {
	found := map[string]bool{}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "--") {
			continue
		}

		for _, f := range strings.Fields(strings.TrimPrefix(line, "--")) {
			if strings.HasPrefix(f, "+") {
				found[strings.ToLower(f)] = true
			}
		}
	}

	return found
}

func stripComments(text string) string {
	var b strings.Builder

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}

		b.WriteString(line)
	}

	return strings.TrimSpace(b.String())
}
