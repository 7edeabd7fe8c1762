package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqasim81/routedb/internal/analyzer"
	"github.com/aqasim81/routedb/internal/analyzer/rules"
	"github.com/aqasim81/routedb/internal/migration"
)

var analyzeCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "analyze [migration-dir]",
	Short: "Analyze migration units for destructive or locking operations",
	Long: `Analyze migration units for operations that lose data, lock busy tables,
touch every row, or cannot safely run twice. Reports findings with severity
levels and suggests safer alternatives.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	analyzeCmd.Flags().String("format", "", "output format (text, json); defaults to the configured format")
	analyzeCmd.Flags().String("min-severity", "low", "hide findings below this severity (safe, low, medium, high, critical)")
	analyzeCmd.Flags().Bool("fail-on-high", false, "exit with non-zero code if high/critical findings exist")
	rootCmd.AddCommand(analyzeCmd)
}

// errHighSeverityFindings is returned when --fail-on-high is set and high/critical findings exist.
var errHighSeverityFindings = errors.New("high or critical severity findings detected")

// errUnknownFormat is returned for an unsupported --format value.
var errUnknownFormat = errors.New("unknown output format")

func runAnalyze(cmd *cobra.Command, args []string) error {
	dir := AppConfig.MigrationsDir
	if len(args) > 0 {
		dir = args[0]
	}

	format := AppConfig.Format
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		format = f
	}

	if format == "" {
		format = "text"
	}

	if format != "text" && format != "json" {
		return fmt.Errorf("%w: %s", errUnknownFormat, format)
	}

	minSeverity := analyzer.Low
	if label, _ := cmd.Flags().GetString("min-severity"); label != "" {
		parsed, err := analyzer.ParseSeverity(label)
		if err != nil {
			return err
		}

		minSeverity = parsed
	}

	units, err := migration.LoadFromDir(dir)
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	if len(units) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No migration files found.")
		return nil
	}

	sorted := migration.Sort(units)

	a := analyzer.New(
		analyzer.WithRegistry(rules.NewDefaultRegistry()),
		analyzer.WithPGVersion(AppConfig.TargetPGVersion),
	)

	results, err := a.AnalyzeAll(sorted)
	if err != nil {
		return fmt.Errorf("analyzing migrations: %w", err)
	}

	for i := range results {
		results[i].Findings = results[i].Blocking(minSeverity)
	}

	var hasHighOrCritical bool

	if format == "json" {
		hasHighOrCritical, err = printAnalysisJSON(cmd, results)
		if err != nil {
			return err
		}
	} else {
		hasHighOrCritical = printAnalysisResults(cmd, results)
	}

	failOnHigh, _ := cmd.Flags().GetBool("fail-on-high")
	if failOnHigh && hasHighOrCritical {
		return errHighSeverityFindings
	}

	return nil
}

func printAnalysisResults(cmd *cobra.Command, results []analyzer.AnalysisResult) bool {
	out := cmd.OutOrStdout()
	totalFindings := 0
	hasHighOrCritical := false

	for _, r := range results {
		if len(r.Findings) == 0 {
			continue
		}

		fmt.Fprintf(out, "\n=== %s_%s ===\n", r.Unit.Version, r.Unit.Name)

		for _, f := range r.Findings {
			fmt.Fprintf(out, "  [%s] %s\n", f.Severity, f.Message)

			if f.Table != "" {
				fmt.Fprintf(out, "    Table: %s\n", f.Table)
			}

			fmt.Fprintf(out, "    Rule:  %s (operation %d)\n", f.Rule, f.OpIndex+1)

			if f.Statement != "" {
				fmt.Fprintf(out, "    SQL:   %s\n", f.Statement)
			}

			fmt.Fprintf(out, "    Fix:   %s\n\n", f.Suggestion)
		}

		totalFindings += len(r.Findings)

		if r.HasHighOrCritical() {
			hasHighOrCritical = true
		}
	}

	if totalFindings == 0 {
		fmt.Fprintln(out, "No dangerous operations detected.")
	} else {
		fmt.Fprintf(out, "Found %d finding(s) across %d unit(s).\n", totalFindings, countUnitsWithFindings(results))
	}

	return hasHighOrCritical
}

type jsonFinding struct {
	Unit       string `json:"unit"`
	Operation  int    `json:"operation"`
	Rule       string `json:"rule"`
	Severity   string `json:"severity"`
	Table      string `json:"table,omitempty"`
	Statement  string `json:"statement,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
	LockType   string `json:"lock_type,omitempty"`
}

func printAnalysisJSON(cmd *cobra.Command, results []analyzer.AnalysisResult) (bool, error) {
	findings := make([]jsonFinding, 0)
	hasHighOrCritical := false

	for _, r := range results {
		for _, f := range r.Findings {
			findings = append(findings, jsonFinding{
				Unit:       r.Unit.Version + "_" + r.Unit.Name,
				Operation:  f.OpIndex + 1,
				Rule:       f.Rule,
				Severity:   f.Severity.String(),
				Table:      f.Table,
				Statement:  f.Statement,
				Message:    f.Message,
				Suggestion: f.Suggestion,
				LockType:   f.LockType,
			})
		}

		if r.HasHighOrCritical() {
			hasHighOrCritical = true
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	if err := enc.Encode(findings); err != nil {
		return false, fmt.Errorf("encoding findings: %w", err)
	}

	return hasHighOrCritical, nil
}

func countUnitsWithFindings(results []analyzer.AnalysisResult) int {
	count := 0

	for _, r := range results {
		if len(r.Findings) > 0 {
			count++
		}
	}

	return count
}
