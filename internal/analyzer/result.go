package analyzer

import "github.com/aqasim81/routedb/internal/migration"

// Finding represents a single risky pattern detected in a unit.
type Finding struct {
	Rule       string   // Rule ID (e.g., "unfiltered-dml")
	Severity   Severity // Danger level
	Table      string   // Affected table name
	Statement  string   // Statement or operation text (truncated for display)
	Message    string   // Human-readable description of the danger
	Suggestion string   // Safer alternative
	LockType   string   // PostgreSQL lock acquired, when relevant
	OpIndex    int      // Index in the unit's operation list (0-based)
	StmtIndex  int      // Index of the statement within the operation (0-based)
}

// AnalysisResult holds all findings for a single unit.
type AnalysisResult struct {
	Unit        *migration.Unit
	Findings    []Finding
	MaxSeverity Severity // Highest severity across all findings
}

// HasHighOrCritical returns true if any finding is High or Critical severity.
func (r *AnalysisResult) HasHighOrCritical() bool {
	return r.MaxSeverity.AtLeast(High)
}

// Blocking returns the findings at or above the given severity.
func (r *AnalysisResult) Blocking(threshold Severity) []Finding {
	var out []Finding

	for _, f := range r.Findings {
		if f.Severity.AtLeast(threshold) {
			out = append(out, f)
		}
	}

	return out
}

// TruncateSQL truncates a SQL string to maxLen characters for display.
func TruncateSQL(sql string, maxLen int) string {
	if len(sql) <= maxLen || maxLen < 4 { //nolint:mnd // room for the ellipsis
		return sql
	}

	return sql[:maxLen-3] + "..."
}
