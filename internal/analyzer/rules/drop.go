package rules

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/routedb/internal/analyzer"
)

// DropRule flags statements that destroy stored data: DROP TABLE, TRUNCATE,
// DROP TYPE and ALTER TABLE ... DROP COLUMN.
type DropRule struct{}

// NewDropRule creates a new DropRule.
func NewDropRule() *DropRule { return &DropRule{} }

// ID returns the rule identifier.
func (r *DropRule) ID() string { return "drop-data" }

// Check examines a statement for destructive drops.
func (r *DropRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_DropStmt:
		return r.checkDrop(node.DropStmt, ctx)
	case *pg_query.Node_TruncateStmt:
		return r.checkTruncate(node.TruncateStmt, ctx)
	case *pg_query.Node_AlterTableStmt:
		return r.checkDropColumn(node.AlterTableStmt, ctx)
	default:
		return nil
	}
}

func (r *DropRule) checkDrop(drop *pg_query.DropStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	if drop == nil {
		return nil
	}

	switch drop.RemoveType {
	case pg_query.ObjectType_OBJECT_TABLE:
		return []analyzer.Finding{{
			Rule:       r.ID(),
			Severity:   analyzer.Critical,
			Table:      strings.Join(dropNames(drop), ", "),
			Message:    "DROP TABLE permanently deletes every row of the table",
			Suggestion: "Take a backup and confirm no application code still reads the table",
			LockType:   "ACCESS EXCLUSIVE",
			OpIndex:    ctx.OpIndex,
			StmtIndex:  ctx.StmtIndex,
		}}
	case pg_query.ObjectType_OBJECT_TYPE:
		return []analyzer.Finding{{
			Rule:       r.ID(),
			Severity:   analyzer.High,
			Table:      strings.Join(dropNames(drop), ", "),
			Message:    "DROP TYPE fails or cascades while columns still use the type",
			Suggestion: "Migrate the dependent columns first",
			LockType:   "ACCESS EXCLUSIVE",
			OpIndex:    ctx.OpIndex,
			StmtIndex:  ctx.StmtIndex,
		}}
	default:
		return nil
	}
}

func (r *DropRule) checkTruncate(trunc *pg_query.TruncateStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	if trunc == nil {
		return nil
	}

	var tables []string

	for _, rel := range trunc.Relations {
		if rv, ok := rel.Node.(*pg_query.Node_RangeVar); ok {
			tables = append(tables, analyzer.TableName(rv.RangeVar))
		}
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.Critical,
		Table:      strings.Join(tables, ", "),
		Message:    "TRUNCATE removes all rows and cannot be undone outside a backup",
		Suggestion: "Delete the specific rows with a filtered DELETE instead",
		LockType:   "ACCESS EXCLUSIVE",
		OpIndex:    ctx.OpIndex,
		StmtIndex:  ctx.StmtIndex,
	}}
}

func (r *DropRule) checkDropColumn(alt *pg_query.AlterTableStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	var findings []analyzer.Finding

	for _, cmd := range alterCmds(alt) {
		if cmd.Subtype != pg_query.AlterTableType_AT_DropColumn {
			continue
		}

		findings = append(findings, analyzer.Finding{
			Rule:       r.ID(),
			Severity:   analyzer.High,
			Table:      analyzer.TableName(alt.Relation) + "." + cmd.Name,
			Message:    "DROP COLUMN discards the column's data for every row",
			Suggestion: "Stop writing the column from the application before dropping it",
			LockType:   "ACCESS EXCLUSIVE",
			OpIndex:    ctx.OpIndex,
			StmtIndex:  ctx.StmtIndex,
		})
	}

	return findings
}

func dropNames(drop *pg_query.DropStmt) []string {
	var names []string

	for _, obj := range drop.Objects {
		switch n := obj.Node.(type) {
		case *pg_query.Node_List:
			if name := analyzer.NameList(n.List.Items); name != "" {
				names = append(names, name)
			}
		case *pg_query.Node_TypeName:
			if name := analyzer.NameList(n.TypeName.Names); name != "" {
				names = append(names, name)
			}
		}
	}

	return names
}

// alterCmds unwraps the commands of an ALTER TABLE statement.
func alterCmds(alt *pg_query.AlterTableStmt) []*pg_query.AlterTableCmd {
	if alt == nil {
		return nil
	}

	cmds := make([]*pg_query.AlterTableCmd, 0, len(alt.Cmds))

	for _, n := range alt.Cmds {
		if c, ok := n.Node.(*pg_query.Node_AlterTableCmd); ok {
			cmds = append(cmds, c.AlterTableCmd)
		}
	}

	return cmds
}
