package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aqasim81/routedb/internal/analyzer"
	"github.com/aqasim81/routedb/internal/analyzer/rules"
	"github.com/aqasim81/routedb/internal/database"
	"github.com/aqasim81/routedb/internal/migration"
	"github.com/aqasim81/routedb/internal/tracker"
)

var planCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "plan",
	Short: "Show the execution plan for migration units",
	Long: `Display the operations apply would run, in order, with each operation's
kind, whether it is safe to re-run, whether it runs outside a transaction,
and the highest analyzer severity of its unit. When a database URL is
configured, units already recorded in the ledger are marked.`,
	RunE: runPlan,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	planCmd.Flags().Bool("pending-only", false, "show only units the ledger does not record")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig
	out := cmd.OutOrStdout()

	sorted, err := loadAndSortUnits(cfg.MigrationsDir, out)
	if err != nil || sorted == nil {
		return err
	}

	a := analyzer.New(
		analyzer.WithRegistry(rules.NewDefaultRegistry()),
		analyzer.WithPGVersion(cfg.TargetPGVersion),
	)

	results, err := a.AnalyzeAll(sorted)
	if err != nil {
		return fmt.Errorf("analyzing migrations: %w", err)
	}

	var applied map[string]tracker.AppliedMigration

	if cfg.DatabaseURL != "" && cfg.Ledger {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		err := database.WithConnection(ctx, cfg.DatabaseURL, func(conn database.Conn) error {
			var readErr error
			applied, readErr = readLedger(ctx, conn)

			return readErr
		})
		if err != nil {
			return err
		}
	}

	pendingOnly, _ := cmd.Flags().GetBool("pending-only")

	printPlan(out, results, applied, pendingOnly)

	return nil
}

func printPlan(out io.Writer, results []analyzer.AnalysisResult, applied map[string]tracker.AppliedMigration, pendingOnly bool) {
	shown := 0

	for i := range results {
		r := &results[i]
		u := r.Unit

		state := ""
		if applied != nil {
			state = unitState(u, applied)
			if pendingOnly && state == stateApplied {
				continue
			}

			state = " [" + state + "]"
		}

		shown++

		fmt.Fprintf(out, "%s_%s%s  risk: %s\n", u.Version, u.Name, state, r.MaxSeverity)

		if u.Description != "" {
			fmt.Fprintf(out, "  %s\n", u.Description)
		}

		for j := range u.Operations {
			op := &u.Operations[j]
			fmt.Fprintf(out, "  %d. %-6s %s%s\n", j+1, op.Kind, op.Describe(), opFlags(op))
		}
	}

	if shown == 0 {
		fmt.Fprintln(out, "Nothing to apply.")
	}
}

func opFlags(op *migration.Operation) string {
	flags := ""

	if op.Idempotent {
		flags += " [idempotent]"
	}

	if op.NoTransaction {
		flags += " [no-transaction]"
	}

	return flags
}
