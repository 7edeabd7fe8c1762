package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/routedb/internal/database"
	"github.com/aqasim81/routedb/internal/migration"
	"github.com/aqasim81/routedb/internal/tracker"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status",
	Short: "Show which units the ledger records as applied",
	Long: `Compare the migration units on disk with the schema_migrations ledger
and list each unit as applied, pending, or modified since it was applied.`,
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(statusCmd)
}

// Unit states reported by status and plan.
const (
	stateApplied  = "applied"
	statePending  = "pending"
	stateModified = "modified"
	stateOrphaned = "missing file"
)

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	units, err := migration.LoadFromDir(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return database.WithConnection(ctx, cfg.DatabaseURL, func(conn database.Conn) error {
		applied, err := readLedger(ctx, conn)
		if err != nil {
			return err
		}

		printStatus(cmd.OutOrStdout(), migration.Sort(units), applied)

		return nil
	})
}

// readLedger returns the ledger rows keyed by version. A database that has
// never been migrated has no ledger table and yields an empty map.
func readLedger(ctx context.Context, conn database.Conn) (map[string]tracker.AppliedMigration, error) {
	rows, err := tracker.New(conn).GetApplied(ctx)
	if err != nil {
		if database.Classify(err).Kind == database.KindUndefinedTable {
			return map[string]tracker.AppliedMigration{}, nil
		}

		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	applied := make(map[string]tracker.AppliedMigration, len(rows))
	for _, r := range rows {
		applied[r.Version] = r
	}

	return applied, nil
}

// unitState compares a unit with its ledger row.
func unitState(u *migration.Unit, applied map[string]tracker.AppliedMigration) string {
	rec, ok := applied[u.Version]

	switch {
	case !ok:
		return statePending
	case rec.Checksum != u.Checksum:
		return stateModified
	default:
		return stateApplied
	}
}

func printStatus(out io.Writer, units []migration.Unit, applied map[string]tracker.AppliedMigration) {
	onDisk := make(map[string]bool, len(units))
	pending := 0

	for i := range units {
		u := &units[i]
		onDisk[u.Version] = true

		state := unitState(u, applied)
		if state == statePending {
			pending++
		}

		line := fmt.Sprintf("  %-8s %-14s %s", u.Version, state, u.Name)
		if rec, ok := applied[u.Version]; ok {
			line += fmt.Sprintf("  (%s, %dms)", rec.AppliedAt.Format(time.DateTime), rec.DurationMs)
		}

		fmt.Fprintln(out, line)
	}

	for _, version := range sortedVersions(applied) {
		if !onDisk[version] {
			fmt.Fprintf(out, "  %-8s %-14s %s\n", version, stateOrphaned, applied[version].Filename)
		}
	}

	fmt.Fprintf(out, "\n%d unit(s), %d applied, %d pending.\n", len(units), len(applied), pending)
}

func sortedVersions(applied map[string]tracker.AppliedMigration) []string {
	units := make([]migration.Unit, 0, len(applied))
	for v := range applied {
		units = append(units, migration.Unit{Version: v})
	}

	sorted := migration.Sort(units)

	versions := make([]string, len(sorted))
	for i := range sorted {
		versions[i] = sorted[i].Version
	}

	return versions
}
