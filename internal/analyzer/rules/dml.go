package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/routedb/internal/analyzer"
)

// UnfilteredDMLRule flags UPDATE and DELETE statements without a WHERE
// clause.
type UnfilteredDMLRule struct{}

// NewUnfilteredDMLRule creates a new UnfilteredDMLRule.
func NewUnfilteredDMLRule() *UnfilteredDMLRule { return &UnfilteredDMLRule{} }

// ID returns the rule identifier.
func (r *UnfilteredDMLRule) ID() string { return "unfiltered-dml" }

// Check examines a statement for UPDATE or DELETE touching every row.
func (r *UnfilteredDMLRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	var (
		verb  string
		table string
	)

	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_UpdateStmt:
		if node.UpdateStmt.WhereClause != nil {
			return nil
		}

		verb, table = "UPDATE", analyzer.TableName(node.UpdateStmt.Relation)
	case *pg_query.Node_DeleteStmt:
		if node.DeleteStmt.WhereClause != nil {
			return nil
		}

		verb, table = "DELETE", analyzer.TableName(node.DeleteStmt.Relation)
	default:
		return nil
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.Critical,
		Table:      table,
		Message:    verb + " without WHERE touches every row of " + table,
		Suggestion: "Add a WHERE clause, or use an update operation with all_rows: true to make the intent explicit",
		LockType:   "ROW EXCLUSIVE",
		OpIndex:    ctx.OpIndex,
		StmtIndex:  ctx.StmtIndex,
	}}
}
