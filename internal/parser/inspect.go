package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// IsIdempotent reports whether the statement guards itself against being
// run twice.
func IsIdempotent(node *pg_query.Node) bool {
	if node == nil {
		return false
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_CreateStmt:
		return n.CreateStmt.GetIfNotExists()
	case *pg_query.Node_IndexStmt:
		return n.IndexStmt.GetIfNotExists()
	case *pg_query.Node_CreateSchemaStmt:
		return n.CreateSchemaStmt.GetIfNotExists()
	case *pg_query.Node_CreateExtensionStmt:
		return n.CreateExtensionStmt.GetIfNotExists()
	case *pg_query.Node_CreateSeqStmt:
		return n.CreateSeqStmt.GetIfNotExists()
	case *pg_query.Node_ViewStmt:
		return n.ViewStmt.GetReplace()
	case *pg_query.Node_CreateFunctionStmt:
		return n.CreateFunctionStmt.GetReplace()
	case *pg_query.Node_DropStmt:
		return n.DropStmt.GetMissingOk()
	case *pg_query.Node_AlterEnumStmt:
		// ADD VALUE IF NOT EXISTS; RENAME VALUE has no guard.
		return n.AlterEnumStmt.GetOldVal() == "" && n.AlterEnumStmt.GetSkipIfNewValExists()
	case *pg_query.Node_AlterTableStmt:
		return alterTableIdempotent(n.AlterTableStmt)
	case *pg_query.Node_UpdateStmt:
		// Assignments of constants converge; arithmetic on the row does not.
		return updateConverges(n.UpdateStmt)
	case *pg_query.Node_DeleteStmt:
		return true
	default:
		return false
	}
}

// alterTableIdempotent is true when every sub-command carries its own guard.
func alterTableIdempotent(stmt *pg_query.AlterTableStmt) bool {
	cmds := stmt.GetCmds()
	if len(cmds) == 0 {
		return false
	}

	for _, c := range cmds {
		cmd := c.GetAlterTableCmd()
		if cmd == nil {
			return false
		}

		switch cmd.GetSubtype() {
		case pg_query.AlterTableType_AT_AddColumn,
			pg_query.AlterTableType_AT_DropColumn,
			pg_query.AlterTableType_AT_DropConstraint:
			if !cmd.GetMissingOk() {
				return false
			}
		case pg_query.AlterTableType_AT_SetNotNull,
			pg_query.AlterTableType_AT_DropNotNull,
			pg_query.AlterTableType_AT_ColumnDefault,
			pg_query.AlterTableType_AT_AlterColumnType:
			// Setting a property to a fixed value converges.
		default:
			return false
		}
	}

	return true
}

func updateConverges(stmt *pg_query.UpdateStmt) bool {
	for _, t := range stmt.GetTargetList() {
		rt := t.GetResTarget()
		if rt == nil || rt.GetVal() == nil {
			return false
		}

		switch rt.GetVal().Node.(type) {
		case *pg_query.Node_AConst, *pg_query.Node_TypeCast:
		default:
			return false
		}
	}

	return true
}

// RemovesTarget reports whether the statement's end state is the absence of
// the object it names: DROP, ALTER TABLE ... DROP COLUMN/CONSTRAINT and
// ALTER TYPE ... RENAME VALUE. Creating, altering or updating a missing
// object is never "already applied".
func RemovesTarget(node *pg_query.Node) bool {
	if node == nil {
		return false
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_DropStmt:
		return true
	case *pg_query.Node_AlterEnumStmt:
		return n.AlterEnumStmt.GetOldVal() != ""
	case *pg_query.Node_AlterTableStmt:
		cmds := n.AlterTableStmt.GetCmds()
		if len(cmds) == 0 {
			return false
		}

		for _, c := range cmds {
			switch c.GetAlterTableCmd().GetSubtype() {
			case pg_query.AlterTableType_AT_DropColumn,
				pg_query.AlterTableType_AT_DropConstraint:
			default:
				return false
			}
		}

		return true
	default:
		return false
	}
}

// RequiresNoTransaction reports whether the statement must run outside a
// transaction block.
func RequiresNoTransaction(node *pg_query.Node) bool {
	if node == nil {
		return false
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_IndexStmt:
		return n.IndexStmt.GetConcurrent()
	case *pg_query.Node_AlterEnumStmt:
		return n.AlterEnumStmt.GetOldVal() == ""
	case *pg_query.Node_VacuumStmt:
		return true
	case *pg_query.Node_DropStmt:
		return n.DropStmt.GetConcurrent()
	default:
		return false
	}
}

// IsUnfilteredUpdate reports whether node is an UPDATE or DELETE with no
// WHERE clause.
func IsUnfilteredUpdate(node *pg_query.Node) bool {
	if node == nil {
		return false
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_UpdateStmt:
		return n.UpdateStmt.GetWhereClause() == nil
	case *pg_query.Node_DeleteStmt:
		return n.DeleteStmt.GetWhereClause() == nil
	default:
		return false
	}
}
