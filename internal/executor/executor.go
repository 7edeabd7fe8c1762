package executor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/aqasim81/routedb/internal/database"
	"github.com/aqasim81/routedb/internal/migration"
	"github.com/aqasim81/routedb/internal/schema"
	"github.com/aqasim81/routedb/internal/tracker"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
	// StatusOperation marks a per-operation event; Op is set.
	StatusOperation = "operation"
)

// ProgressEvent is emitted for each unit processed and for each of its
// operations.
type ProgressEvent struct {
	Unit     *migration.Unit
	Status   string
	Op       *OpResult
	Duration time.Duration
	Error    error
}

// MigrationTracker abstracts the schema_migrations ledger for testability.
type MigrationTracker interface {
	EnsureTable(ctx context.Context) error
	IsApplied(ctx context.Context, version string) (bool, error)
	GetChecksum(ctx context.Context, version string) (string, error)
	RecordApplied(ctx context.Context, p tracker.RecordParams) error
}

// Syncer reconciles a registered model with its table.
type Syncer interface {
	Sync(ctx context.Context, model string, opts schema.Options) (schema.Report, error)
}

// lockFunc acquires the migration lock and returns a releaser.
type lockFunc func(ctx context.Context) (database.Releaser, error)

// opFunc executes a single operation.
type opFunc func(ctx context.Context, op *migration.Operation) (opOutcome, error)

// Executor applies units in order over an explicitly supplied connection.
// Each operation runs on its own; a failure that is not "already applied"
// stops the run.
type Executor struct {
	conn             database.Conn
	tracker          MigrationTracker
	syncer           Syncer
	lockTimeout      time.Duration
	statementTimeout time.Duration
	dryRun           bool
	onProgress       func(ProgressEvent)
	log              *zap.Logger
	acquireLock      lockFunc
	runOp            opFunc
}

// Option configures an Executor.
type Option func(*Executor)

// WithLockTimeout sets the per-transaction lock_timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Executor) { e.lockTimeout = d }
}

// WithStatementTimeout sets the per-transaction statement_timeout.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Executor) { e.statementTimeout = d }
}

// WithDryRun reports what would run without executing anything.
func WithDryRun(b bool) Option {
	return func(e *Executor) { e.dryRun = b }
}

// WithProgressCallback sets a function called for each unit and operation.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(e *Executor) { e.onProgress = fn }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// WithSyncer sets the model synchronizer used by sync operations.
func WithSyncer(s Syncer) Option {
	return func(e *Executor) { e.syncer = s }
}

// New creates an Executor. A nil tracker disables the ledger: every unit is
// attempted and idempotency rests on the operations themselves.
func New(conn database.Conn, t MigrationTracker, opts ...Option) *Executor {
	e := &Executor{
		conn:    conn,
		tracker: t,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.log == nil {
		e.log = zap.NewNop()
	}

	// Set defaults for injectable functions after options are applied,
	// so tests can override them via options.
	if e.acquireLock == nil {
		e.acquireLock = func(ctx context.Context) (database.Releaser, error) {
			return e.conn.AcquireLock(ctx)
		}
	}

	if e.runOp == nil {
		e.runOp = e.executeOperation
	}

	return e
}

// Apply runs the units in the given order while holding the migration lock.
// It stops at the first failed unit and returns the results gathered so far
// together with the error.
func (e *Executor) Apply(ctx context.Context, units []migration.Unit) ([]Result, error) {
	lock, err := e.acquireLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring migration lock: %w", err)
	}
	defer lock.Release(ctx) //nolint:errcheck // best-effort release on return

	if e.tracker != nil && !e.dryRun {
		if err := e.tracker.EnsureTable(ctx); err != nil {
			return nil, err
		}
	}

	results := make([]Result, 0, len(units))

	for i := range units {
		res := e.applyOne(ctx, &units[i])
		results = append(results, res)

		if res.State == Failed {
			return results, res.Err
		}
	}

	return results, nil
}

// applyOne drives a single unit through NotStarted -> Running -> terminal.
func (e *Executor) applyOne(ctx context.Context, u *migration.Unit) Result {
	res := Result{Unit: u, State: NotStarted}

	skip, err := e.shouldSkip(ctx, u)
	if err != nil {
		res.State = Failed
		res.Err = err
		e.fireProgress(ProgressEvent{Unit: u, Status: StatusFailed, Error: err})

		return res
	}

	if skip {
		res.State = Skipped
		e.log.Debug("unit already recorded", zap.String("version", u.Version))
		e.fireProgress(ProgressEvent{Unit: u, Status: StatusSkipped})

		return res
	}

	res.State = Running
	e.fireProgress(ProgressEvent{Unit: u, Status: StatusStarting})

	start := time.Now()
	res.Ops = e.runOperations(ctx, u)
	res.Duration = time.Since(start)

	if failed := firstFailure(res.Ops); failed != nil {
		res.State = Failed
		res.Err = fmt.Errorf("%w: %s_%s operation %d: %w", ErrUnitFailed, u.Version, u.Name, failed.Index+1, failed.Err)
		e.fireProgress(ProgressEvent{Unit: u, Status: StatusFailed, Duration: res.Duration, Error: res.Err})

		return res
	}

	if e.dryRun {
		res.State = Skipped
		e.fireProgress(ProgressEvent{Unit: u, Status: StatusSkipped})

		return res
	}

	if e.tracker != nil {
		if err := e.tracker.RecordApplied(ctx, tracker.RecordParams{
			Version:    u.Version,
			Filename:   filepath.Base(u.FilePath),
			Checksum:   u.Checksum,
			DurationMs: int(res.Duration.Milliseconds()),
		}); err != nil {
			res.State = Failed
			res.Err = fmt.Errorf("recording unit %s: %w", u.Version, err)
			e.fireProgress(ProgressEvent{Unit: u, Status: StatusFailed, Duration: res.Duration, Error: res.Err})

			return res
		}
	}

	res.State = Succeeded
	e.fireProgress(ProgressEvent{Unit: u, Status: StatusCompleted, Duration: res.Duration})

	return res
}

// runOperations executes operations in order. After a fatal failure the
// rest are reported not-run.
func (e *Executor) runOperations(ctx context.Context, u *migration.Unit) []OpResult {
	ops := make([]OpResult, len(u.Operations))
	stopped := false

	for i := range u.Operations {
		op := &u.Operations[i]
		r := OpResult{Index: i, Operation: op, RowsAffected: NotApplicable}

		switch {
		case stopped:
			r.Status = OpNotRun
		case e.dryRun:
			r.Status = OpDryRun
		default:
			r = e.runOne(ctx, u, i)
			stopped = r.Status == OpFailed
		}

		ops[i] = r

		if r.Status != OpNotRun {
			e.fireProgress(ProgressEvent{Unit: u, Status: StatusOperation, Op: &ops[i], Duration: r.Duration, Error: r.Err})
		}
	}

	return ops
}

// runOne executes one operation and classifies its failure, if any.
func (e *Executor) runOne(ctx context.Context, u *migration.Unit, i int) OpResult {
	op := &u.Operations[i]

	start := time.Now()
	out, err := e.runOp(ctx, op)

	r := OpResult{
		Index:        i,
		Operation:    op,
		RowsAffected: out.rows,
		Details:      out.details,
		Duration:     time.Since(start),
	}

	if err == nil {
		r.Status = OpApplied
		e.log.Debug("operation applied",
			zap.String("version", u.Version), zap.Int("op", i+1), zap.String("what", op.Describe()))

		return r
	}

	r.Classification = database.Classify(err)
	r.RowsAffected = NotApplicable

	if alreadyApplied(r.Classification, op) {
		r.Status = OpAlreadyApplied
		r.Details = append(r.Details, "already applied: "+rootMessage(err))
		e.log.Info("operation already applied",
			zap.String("version", u.Version), zap.Int("op", i+1),
			zap.String("class", r.Classification.Class.String()), zap.String("kind", string(r.Classification.Kind)),
			zap.Error(err))

		return r
	}

	r.Status = OpFailed
	r.Err = err
	e.log.Error("operation failed",
		zap.String("version", u.Version), zap.Int("op", i+1), zap.String("what", op.Describe()), zap.Error(err))

	return r
}

// alreadyApplied decides whether a classified failure counts as success. A
// missing object only does when the operation exists to remove it.
func alreadyApplied(c database.Classification, op *migration.Operation) bool {
	switch c.Class {
	case database.Recoverable:
		return true
	case database.Conditional:
		return op.Idempotent && op.MissingTargetOK
	default:
		return false
	}
}

func firstFailure(ops []OpResult) *OpResult {
	for i := range ops {
		if ops[i].Status == OpFailed {
			return &ops[i]
		}
	}

	return nil
}

// rootMessage returns the innermost error text.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}

		err = next
	}
}

// shouldSkip returns true if the unit is already recorded in the ledger.
// The recorded checksum must match to catch edited unit files.
func (e *Executor) shouldSkip(ctx context.Context, u *migration.Unit) (bool, error) {
	if e.tracker == nil {
		return false, nil
	}

	applied, err := e.tracker.IsApplied(ctx, u.Version)
	if err != nil {
		// Dry-run does not create the ledger; no table means nothing applied.
		if e.dryRun && database.Classify(err).Kind == database.KindUndefinedTable {
			return false, nil
		}

		return false, fmt.Errorf("checking unit %s: %w", u.Version, err)
	}

	if !applied {
		return false, nil
	}

	storedChecksum, err := e.tracker.GetChecksum(ctx, u.Version)
	if err != nil {
		return false, fmt.Errorf("getting checksum for %s: %w", u.Version, err)
	}

	if storedChecksum != u.Checksum {
		return false, fmt.Errorf(
			"unit %s: %w: stored=%s computed=%s",
			u.Version, tracker.ErrChecksumMismatch, storedChecksum, u.Checksum,
		)
	}

	return true, nil
}

func (e *Executor) timeouts() database.Timeouts {
	return database.Timeouts{Lock: e.lockTimeout, Statement: e.statementTimeout}
}

func (e *Executor) fireProgress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}
