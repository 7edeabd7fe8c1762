package executor

import (
	"fmt"
	"time"

	"github.com/aqasim81/routedb/internal/database"
	"github.com/aqasim81/routedb/internal/migration"
)

// State is the lifecycle of a unit within one run. Terminal states are never
// left; a failed unit is not retried.
type State int

// Unit states.
const (
	NotStarted State = iota
	Running
	Succeeded
	Failed
	Skipped
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// OpStatus is the outcome of a single operation.
type OpStatus string

// Operation outcomes.
const (
	OpApplied        OpStatus = "applied"
	OpAlreadyApplied OpStatus = "already-applied"
	OpFailed         OpStatus = "failed"
	OpNotRun         OpStatus = "not-run"
	OpDryRun         OpStatus = "dry-run"
)

// NotApplicable is reported as RowsAffected for operations that do not
// touch rows (DDL, model sync).
const NotApplicable int64 = -1

// OpResult is the outcome of one operation.
type OpResult struct {
	Index          int
	Operation      *migration.Operation
	Status         OpStatus
	RowsAffected   int64
	Details        []string
	Classification database.Classification
	Err            error
	Duration       time.Duration
}

// Result is the outcome of one unit. It is consumed by the caller for
// console output and the exit code and is never persisted.
type Result struct {
	Unit     *migration.Unit
	State    State
	Ops      []OpResult
	Duration time.Duration
	Err      error
}

// Succeeded reports whether the unit finished without a fatal failure.
// Skipped units count as successful.
func (r *Result) Succeeded() bool {
	return r.State == Succeeded || r.State == Skipped
}

// RowsAffected sums the row counts of operations that report one. It
// returns NotApplicable when no operation does.
func (r *Result) RowsAffected() int64 {
	total := NotApplicable

	for _, op := range r.Ops {
		if op.RowsAffected == NotApplicable {
			continue
		}

		if total == NotApplicable {
			total = 0
		}

		total += op.RowsAffected
	}

	return total
}

// Summary renders human-readable lines for the unit.
func (r *Result) Summary() []string {
	lines := []string{fmt.Sprintf("%s_%s: %s", r.Unit.Version, r.Unit.Name, r.State)}

	for _, op := range r.Ops {
		line := fmt.Sprintf("  %-15s %s", op.Status, op.Operation.Describe())
		if op.RowsAffected != NotApplicable {
			line += fmt.Sprintf(" (%d rows)", op.RowsAffected)
		}

		lines = append(lines, line)

		for _, d := range op.Details {
			lines = append(lines, "    "+d)
		}
	}

	if r.Err != nil {
		lines = append(lines, "  error: "+r.Err.Error())
	}

	return lines
}
