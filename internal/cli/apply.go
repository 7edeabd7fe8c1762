package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/routedb/internal/analyzer"
	"github.com/aqasim81/routedb/internal/analyzer/rules"
	"github.com/aqasim81/routedb/internal/config"
	"github.com/aqasim81/routedb/internal/database"
	"github.com/aqasim81/routedb/internal/executor"
	"github.com/aqasim81/routedb/internal/migration"
	"github.com/aqasim81/routedb/internal/schema"
	"github.com/aqasim81/routedb/internal/tracker"
)

// errDangerousMigrations is returned when apply is blocked by high/critical findings.
var errDangerousMigrations = errors.New("apply aborted: destructive or locking operations detected (use --force to override)")

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New( //nolint:gochecknoglobals // sentinel error
	"database URL is required (set --database-url, MIGRATE_DATABASE_URL, or database_url in config)",
)

// errUnknownVersion is returned when --only names a unit that does not exist.
var errUnknownVersion = errors.New("no migration unit with that version")

var applyCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "apply",
	Short: "Apply migration units in order",
	Long: `Apply migration units in version order. Operations whose changes already
exist are reported as already applied and the run continues; any other
failure stops the run and exits non-zero. Units recorded in the
schema_migrations ledger are skipped unless --no-ledger is set.`,
	RunE: runApply,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	applyCmd.Flags().Bool("dry-run", false, "show what would be applied without executing")
	applyCmd.Flags().Bool("force", false, "apply even when the analyzer reports high or critical findings")
	applyCmd.Flags().Bool("no-ledger", false, "do not read or write the schema_migrations ledger")
	applyCmd.Flags().Duration("lock-timeout", 0, "override lock timeout (e.g., 10s, 1m)")
	applyCmd.Flags().Duration("statement-timeout", 0, "override statement timeout (e.g., 30s, 5m)")
	applyCmd.Flags().String("only", "", "apply only the unit with this version")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	opts := applyOptsFromFlags(cmd, cfg)

	sorted, err := loadAndSortUnits(cfg.MigrationsDir, cmd.OutOrStdout())
	if err != nil || sorted == nil {
		return err
	}

	if opts.only != "" {
		sorted = migration.Filter(sorted, opts.only)
		if len(sorted) == 0 {
			return fmt.Errorf("%w: %s", errUnknownVersion, opts.only)
		}
	}

	if !opts.force && !opts.dryRun {
		if blocked, analyzeErr := checkDangerousUnits(cmd, sorted, cfg); analyzeErr != nil {
			return analyzeErr
		} else if blocked {
			return errDangerousMigrations
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	conn, err := connectDB(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer conn.Close()

	return executeUnits(ctx, cmd.OutOrStdout(), conn, sorted, opts)
}

type applyOpts struct {
	lockTimeout time.Duration
	stmtTimeout time.Duration
	dryRun      bool
	force       bool
	ledger      bool
	only        string
}

func applyOptsFromFlags(cmd *cobra.Command, cfg *config.Config) applyOpts {
	opts := applyOpts{
		lockTimeout: cfg.LockTimeout,
		stmtTimeout: cfg.StatementTimeout,
		ledger:      cfg.Ledger,
	}

	opts.dryRun, _ = cmd.Flags().GetBool("dry-run")
	opts.force, _ = cmd.Flags().GetBool("force")
	opts.only, _ = cmd.Flags().GetString("only")

	if noLedger, _ := cmd.Flags().GetBool("no-ledger"); noLedger {
		opts.ledger = false
	}

	if cmd.Flags().Changed("lock-timeout") {
		opts.lockTimeout, _ = cmd.Flags().GetDuration("lock-timeout")
	}

	if cmd.Flags().Changed("statement-timeout") {
		opts.stmtTimeout, _ = cmd.Flags().GetDuration("statement-timeout")
	}

	return opts
}

func loadAndSortUnits(dir string, out io.Writer) ([]migration.Unit, error) {
	units, err := migration.LoadFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	if len(units) == 0 {
		fmt.Fprintln(out, "No migration files found.")
		return nil, nil //nolint:nilnil // nil,nil signals "no units, no error"
	}

	return migration.Sort(units), nil
}

func connectDB(ctx context.Context, cfg *config.Config, out io.Writer) (database.Conn, error) {
	fmt.Fprintf(out, "Connecting to %s\n", config.RedactURL(cfg.DatabaseURL))

	conn, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return conn, nil
}

func executeUnits(
	ctx context.Context,
	out io.Writer,
	conn database.Conn,
	sorted []migration.Unit,
	opts applyOpts,
) error {
	var ledger executor.MigrationTracker
	if opts.ledger {
		ledger = tracker.New(conn)
	}

	applied := 0
	skipped := 0

	exec := executor.New(conn, ledger,
		executor.WithLockTimeout(opts.lockTimeout),
		executor.WithStatementTimeout(opts.stmtTimeout),
		executor.WithDryRun(opts.dryRun),
		executor.WithLogger(logger()),
		executor.WithSyncer(schema.New(conn, logger())),
		executor.WithProgressCallback(func(event executor.ProgressEvent) {
			switch event.Status {
			case executor.StatusStarting:
				fmt.Fprintf(out, "  Applying %s_%s\n", event.Unit.Version, event.Unit.Name)
			case executor.StatusOperation:
				printOperation(out, event.Op)
			case executor.StatusCompleted:
				fmt.Fprintf(out, "  done (%s)\n", event.Duration.Truncate(time.Millisecond))
				applied++
			case executor.StatusSkipped:
				if !opts.dryRun {
					fmt.Fprintf(out, "  Skipping %s_%s (recorded in ledger)\n", event.Unit.Version, event.Unit.Name)
				}
				skipped++
			case executor.StatusFailed:
				fmt.Fprintf(out, "  FAILED %s_%s\n", event.Unit.Version, event.Unit.Name)
			}
		}),
	)

	if opts.dryRun {
		fmt.Fprintln(out, "\n--- DRY RUN (no changes will be made) ---")
	}

	if !opts.ledger {
		fmt.Fprintln(out, "Ledger disabled: every unit is attempted.")
	}

	if _, err := exec.Apply(ctx, sorted); err != nil {
		return err
	}

	if opts.dryRun {
		fmt.Fprintf(out, "\nDry run complete: %d unit(s) checked.\n", len(sorted))
	} else {
		fmt.Fprintf(out, "\nApply complete: %d applied, %d skipped.\n", applied, skipped)
	}

	return nil
}

func printOperation(out io.Writer, op *executor.OpResult) {
	if op == nil {
		return
	}

	line := fmt.Sprintf("    [%s] %s", op.Status, op.Operation.Describe())
	if op.RowsAffected != executor.NotApplicable {
		line += fmt.Sprintf(" (%d rows)", op.RowsAffected)
	}

	fmt.Fprintln(out, line)

	for _, d := range op.Details {
		fmt.Fprintf(out, "      %s\n", d)
	}

	if op.Err != nil {
		fmt.Fprintf(out, "      Error: %v\n", op.Err)
	}
}

// checkDangerousUnits runs the analyzer and returns true if
// HIGH/CRITICAL findings were found (blocking apply).
func checkDangerousUnits(cmd *cobra.Command, sorted []migration.Unit, cfg *config.Config) (bool, error) {
	a := analyzer.New(
		analyzer.WithRegistry(rules.NewDefaultRegistry()),
		analyzer.WithPGVersion(cfg.TargetPGVersion),
	)

	results, err := a.AnalyzeAll(sorted)
	if err != nil {
		return false, fmt.Errorf("analyzing migrations: %w", err)
	}

	var blocking []analyzer.AnalysisResult

	for _, r := range results {
		if r.HasHighOrCritical() {
			r.Findings = r.Blocking(analyzer.High)
			blocking = append(blocking, r)
		}
	}

	if len(blocking) == 0 {
		return false, nil
	}

	printAnalysisResults(cmd, blocking)

	return true, nil
}
