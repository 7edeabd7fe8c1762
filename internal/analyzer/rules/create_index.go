package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/routedb/internal/analyzer"
	"github.com/aqasim81/routedb/internal/migration"
)

// CreateIndexRule flags CREATE INDEX without CONCURRENTLY on a live table.
// Tables created earlier in the same unit are empty and are not flagged.
type CreateIndexRule struct{}

// NewCreateIndexRule creates a new CreateIndexRule.
func NewCreateIndexRule() *CreateIndexRule { return &CreateIndexRule{} }

// ID returns the rule identifier.
func (r *CreateIndexRule) ID() string { return "create-index-not-concurrent" }

// Check examines a statement for non-concurrent CREATE INDEX.
func (r *CreateIndexRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_IndexStmt)
	if !ok || node.IndexStmt.Concurrent {
		return nil
	}

	table := analyzer.TableName(node.IndexStmt.Relation)
	if createdEarlier(ctx, table) {
		return nil
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      table,
		Message:    "CREATE INDEX without CONCURRENTLY blocks writes while the index builds",
		Suggestion: "Use CREATE INDEX CONCURRENTLY IF NOT EXISTS; the runner executes it outside a transaction",
		LockType:   "SHARE",
		OpIndex:    ctx.OpIndex,
		StmtIndex:  ctx.StmtIndex,
	}}
}

// createdEarlier reports whether a CREATE TABLE for table runs before the
// current operation in the same unit.
func createdEarlier(ctx *analyzer.RuleContext, table string) bool {
	if ctx.Unit == nil {
		return false
	}

	for i := 0; i < ctx.OpIndex && i < len(ctx.Unit.Operations); i++ {
		op := &ctx.Unit.Operations[i]
		if op.Kind != migration.KindSQL {
			continue
		}

		result, err := pg_query.Parse(op.SQL)
		if err != nil {
			continue
		}

		for _, raw := range result.Stmts {
			if c, ok := raw.Stmt.Node.(*pg_query.Node_CreateStmt); ok && analyzer.TableName(c.CreateStmt.Relation) == table {
				return true
			}
		}
	}

	return false
}
