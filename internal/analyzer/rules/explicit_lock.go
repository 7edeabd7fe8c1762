package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/routedb/internal/analyzer"
)

// ExplicitLockRule flags statements that take a table lock for their whole
// duration: LOCK TABLE and VACUUM FULL.
type ExplicitLockRule struct{}

// NewExplicitLockRule creates a new ExplicitLockRule.
func NewExplicitLockRule() *ExplicitLockRule { return &ExplicitLockRule{} }

// ID returns the rule identifier.
func (r *ExplicitLockRule) ID() string { return "explicit-lock" }

// Check examines a statement for LOCK TABLE or VACUUM FULL.
func (r *ExplicitLockRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_LockStmt:
		var findings []analyzer.Finding

		for _, rel := range node.LockStmt.Relations {
			rv, ok := rel.Node.(*pg_query.Node_RangeVar)
			if !ok {
				continue
			}

			findings = append(findings, analyzer.Finding{
				Rule:       r.ID(),
				Severity:   analyzer.High,
				Table:      analyzer.TableName(rv.RangeVar),
				Message:    "LOCK TABLE blocks the application for the rest of the transaction",
				Suggestion: "Drop the explicit lock and let the statement take the lock it needs",
				LockType:   "EXPLICIT",
				OpIndex:    ctx.OpIndex,
				StmtIndex:  ctx.StmtIndex,
			})
		}

		return findings
	case *pg_query.Node_VacuumStmt:
		if !isVacuumFull(node.VacuumStmt) {
			return nil
		}

		return []analyzer.Finding{{
			Rule:       r.ID(),
			Severity:   analyzer.High,
			Table:      vacuumTarget(node.VacuumStmt),
			Message:    "VACUUM FULL rewrites the table and blocks reads and writes",
			Suggestion: "Use plain VACUUM",
			LockType:   "ACCESS EXCLUSIVE",
			OpIndex:    ctx.OpIndex,
			StmtIndex:  ctx.StmtIndex,
		}}
	default:
		return nil
	}
}

func isVacuumFull(v *pg_query.VacuumStmt) bool {
	for _, opt := range v.Options {
		if de, ok := opt.Node.(*pg_query.Node_DefElem); ok && de.DefElem.Defname == "full" {
			return true
		}
	}

	return false
}

func vacuumTarget(v *pg_query.VacuumStmt) string {
	for _, rel := range v.Rels {
		vr, ok := rel.Node.(*pg_query.Node_VacuumRelation)
		if ok && vr.VacuumRelation.Relation != nil {
			return analyzer.TableName(vr.VacuumRelation.Relation)
		}
	}

	return "<all tables>"
}
