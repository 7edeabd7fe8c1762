package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/routedb/internal/analyzer"
)

// Finding rule IDs reported by AlterTableRule.
const (
	RuleAlterColumnType     = "alter-column-type"
	RuleVolatileDefault     = "add-column-volatile-default"
	RuleSetNotNull          = "set-not-null"
	RuleConstraintValidates = "add-constraint-without-not-valid"
)

const (
	pgVersionSafeNonVolatileDefault = 11
	pgVersionSafeSetNotNull         = 12
)

// AlterTableRule flags ALTER TABLE commands that rewrite or scan the whole
// table under an ACCESS EXCLUSIVE lock.
type AlterTableRule struct{}

// NewAlterTableRule creates a new AlterTableRule.
func NewAlterTableRule() *AlterTableRule { return &AlterTableRule{} }

// ID returns the rule identifier.
func (r *AlterTableRule) ID() string { return "alter-table-lock" }

// Check examines each command of an ALTER TABLE statement.
func (r *AlterTableRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_AlterTableStmt)
	if !ok {
		return nil
	}

	alt := node.AlterTableStmt
	table := analyzer.TableName(alt.Relation)

	var findings []analyzer.Finding

	for _, cmd := range alterCmds(alt) {
		f := r.checkCmd(cmd, ctx)
		if f == nil {
			continue
		}

		f.Table = table
		f.LockType = "ACCESS EXCLUSIVE"
		f.OpIndex = ctx.OpIndex
		f.StmtIndex = ctx.StmtIndex
		findings = append(findings, *f)
	}

	return findings
}

func (r *AlterTableRule) checkCmd(cmd *pg_query.AlterTableCmd, ctx *analyzer.RuleContext) *analyzer.Finding {
	switch cmd.Subtype {
	case pg_query.AlterTableType_AT_AlterColumnType:
		return &analyzer.Finding{
			Rule:       RuleAlterColumnType,
			Severity:   analyzer.High,
			Message:    "ALTER COLUMN " + cmd.Name + " TYPE rewrites the entire table",
			Suggestion: "Add a new column, backfill it, switch the application, then drop the old one",
		}
	case pg_query.AlterTableType_AT_AddColumn:
		return checkAddColumnDefault(cmd, ctx.TargetPGVersion)
	case pg_query.AlterTableType_AT_SetNotNull:
		if ctx.TargetPGVersion >= pgVersionSafeSetNotNull {
			return &analyzer.Finding{
				Rule:       RuleSetNotNull,
				Severity:   analyzer.Medium,
				Message:    "SET NOT NULL on " + cmd.Name + " scans the table to verify existing rows",
				Suggestion: "Add CHECK (col IS NOT NULL) NOT VALID, VALIDATE it, then SET NOT NULL",
			}
		}

		return &analyzer.Finding{
			Rule:       RuleSetNotNull,
			Severity:   analyzer.High,
			Message:    "SET NOT NULL on " + cmd.Name + " scans the table to verify existing rows",
			Suggestion: "Backfill NULLs first and run it in a maintenance window",
		}
	case pg_query.AlterTableType_AT_AddConstraint:
		return checkConstraintValidation(cmd)
	default:
		return nil
	}
}

func checkAddColumnDefault(cmd *pg_query.AlterTableCmd, pgVersion int) *analyzer.Finding {
	if cmd.Def == nil {
		return nil
	}

	colDef, ok := cmd.Def.Node.(*pg_query.Node_ColumnDef)
	if !ok {
		return nil
	}

	expr := defaultExpr(colDef.ColumnDef)
	if expr == nil {
		return nil
	}

	if pgVersion >= pgVersionSafeNonVolatileDefault && !isVolatile(expr) {
		return nil
	}

	msg := "ADD COLUMN " + colDef.ColumnDef.Colname + " with a volatile DEFAULT rewrites the entire table"
	if pgVersion < pgVersionSafeNonVolatileDefault {
		msg = "ADD COLUMN " + colDef.ColumnDef.Colname + " with a DEFAULT rewrites the entire table before PostgreSQL 11"
	}

	return &analyzer.Finding{
		Rule:       RuleVolatileDefault,
		Severity:   analyzer.High,
		Message:    msg,
		Suggestion: "Add the column as nullable without a default, then backfill with a filtered update",
	}
}

func checkConstraintValidation(cmd *pg_query.AlterTableCmd) *analyzer.Finding {
	if cmd.Def == nil {
		return nil
	}

	cn, ok := cmd.Def.Node.(*pg_query.Node_Constraint)
	if !ok {
		return nil
	}

	c := cn.Constraint
	if c.Contype != pg_query.ConstrType_CONSTR_CHECK && c.Contype != pg_query.ConstrType_CONSTR_FOREIGN {
		return nil
	}

	if c.SkipValidation {
		return nil
	}

	return &analyzer.Finding{
		Rule:       RuleConstraintValidates,
		Severity:   analyzer.High,
		Message:    "ADD CONSTRAINT without NOT VALID checks every row while holding the lock",
		Suggestion: "Add it NOT VALID, then VALIDATE CONSTRAINT in a separate operation",
	}
}

// defaultExpr returns the DEFAULT expression of a column definition. In the
// parse tree DEFAULT is a CONSTR_DEFAULT constraint carrying RawExpr.
func defaultExpr(colDef *pg_query.ColumnDef) *pg_query.Node {
	for _, c := range colDef.Constraints {
		cn, ok := c.Node.(*pg_query.Node_Constraint)
		if ok && cn.Constraint.Contype == pg_query.ConstrType_CONSTR_DEFAULT {
			return cn.Constraint.RawExpr
		}
	}

	return nil
}

// isVolatile treats constants and casts of constants as stable and anything
// else, function calls included, as volatile.
func isVolatile(node *pg_query.Node) bool {
	switch n := node.Node.(type) {
	case *pg_query.Node_AConst:
		return false
	case *pg_query.Node_TypeCast:
		if n.TypeCast.Arg != nil {
			if _, ok := n.TypeCast.Arg.Node.(*pg_query.Node_AConst); ok {
				return false
			}
		}

		return true
	default:
		return true
	}
}
