package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/routedb/internal/analyzer"
)

// RenameRule flags renames the running application may still depend on:
// tables, columns and enum labels.
type RenameRule struct{}

// NewRenameRule creates a new RenameRule.
func NewRenameRule() *RenameRule { return &RenameRule{} }

// ID returns the rule identifier.
func (r *RenameRule) ID() string { return "rename" }

// Check examines a statement for a rename.
func (r *RenameRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_RenameStmt:
		return r.checkRename(node.RenameStmt, ctx)
	case *pg_query.Node_AlterEnumStmt:
		enum := node.AlterEnumStmt
		if enum == nil || enum.OldVal == "" {
			return nil
		}

		return []analyzer.Finding{{
			Rule:       r.ID(),
			Severity:   analyzer.Medium,
			Table:      analyzer.NameList(enum.TypeName),
			Message:    "RENAME VALUE '" + enum.OldVal + "' breaks clients still writing the old label",
			Suggestion: "Deploy clients that accept both labels before renaming; mark the operation +idempotent",
			OpIndex:    ctx.OpIndex,
			StmtIndex:  ctx.StmtIndex,
		}}
	default:
		return nil
	}
}

func (r *RenameRule) checkRename(rename *pg_query.RenameStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	if rename == nil {
		return nil
	}

	var msg string

	switch rename.RenameType {
	case pg_query.ObjectType_OBJECT_TABLE:
		msg = "RENAME TABLE breaks application code that references the old name"
	case pg_query.ObjectType_OBJECT_COLUMN:
		msg = "RENAME COLUMN " + rename.Subname + " breaks application code that references the old name"
	default:
		return nil
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.Medium,
		Table:      analyzer.TableName(rename.Relation),
		Message:    msg,
		Suggestion: "Add the new name alongside the old one, switch the application, then remove the old name",
		LockType:   "ACCESS EXCLUSIVE",
		OpIndex:    ctx.OpIndex,
		StmtIndex:  ctx.StmtIndex,
	}}
}
