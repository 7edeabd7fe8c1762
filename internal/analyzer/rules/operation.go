package rules

import (
	"strings"

	"github.com/aqasim81/routedb/internal/analyzer"
	"github.com/aqasim81/routedb/internal/migration"
)

// UpdateAllRowsRule flags manifest updates that opted in to touching every
// row of a table.
type UpdateAllRowsRule struct{}

// NewUpdateAllRowsRule creates a new UpdateAllRowsRule.
func NewUpdateAllRowsRule() *UpdateAllRowsRule { return &UpdateAllRowsRule{} }

// ID returns the rule identifier.
func (r *UpdateAllRowsRule) ID() string { return "update-all-rows" }

// CheckOperation examines an update operation.
func (r *UpdateAllRowsRule) CheckOperation(op *migration.Operation, ctx *analyzer.RuleContext) []analyzer.Finding {
	if op.Kind != migration.KindUpdate || op.Update == nil || !op.Update.AllRows {
		return nil
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      op.Update.Table,
		Message:    "update sets " + joinKeys(op.Update.Set) + " on every row of " + op.Update.Table,
		Suggestion: "Add a where filter unless every row really must change",
		LockType:   "ROW EXCLUSIVE",
		OpIndex:    ctx.OpIndex,
	}}
}

// SyncAlterRule flags model syncs allowed to alter existing columns.
type SyncAlterRule struct{}

// NewSyncAlterRule creates a new SyncAlterRule.
func NewSyncAlterRule() *SyncAlterRule { return &SyncAlterRule{} }

// ID returns the rule identifier.
func (r *SyncAlterRule) ID() string { return "sync-allow-alter" }

// CheckOperation examines a sync operation.
func (r *SyncAlterRule) CheckOperation(op *migration.Operation, ctx *analyzer.RuleContext) []analyzer.Finding {
	if op.Kind != migration.KindSync || op.Sync == nil || !op.Sync.AllowAlter {
		return nil
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.Medium,
		Table:      op.Sync.Model,
		Message:    "sync may change the type or nullability of existing columns of " + op.Sync.Model,
		Suggestion: "Run plan against a copy first, or drop allow_alter to only add what is missing",
		LockType:   "ACCESS EXCLUSIVE",
		OpIndex:    ctx.OpIndex,
	}}
}

// NotIdempotentRule notes SQL operations that are not safe to run twice.
type NotIdempotentRule struct{}

// NewNotIdempotentRule creates a new NotIdempotentRule.
func NewNotIdempotentRule() *NotIdempotentRule { return &NotIdempotentRule{} }

// ID returns the rule identifier.
func (r *NotIdempotentRule) ID() string { return "not-idempotent" }

// CheckOperation examines a SQL operation.
func (r *NotIdempotentRule) CheckOperation(op *migration.Operation, ctx *analyzer.RuleContext) []analyzer.Finding {
	if op.Kind != migration.KindSQL || op.Idempotent {
		return nil
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.Low,
		Message:    "re-running this statement is only safe if its failure is recognized as already applied",
		Suggestion: "Use IF NOT EXISTS / IF EXISTS / OR REPLACE, or mark it -- +idempotent",
		OpIndex:    ctx.OpIndex,
	}}
}

func joinKeys(m map[string]any) string {
	return strings.Join(migration.SortedKeys(m), ", ")
}
