package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/routedb/internal/analyzer"
	"github.com/aqasim81/routedb/internal/config"
	"github.com/aqasim81/routedb/internal/migration"
)

// setupTestConfig sets AppConfig for the duration of the test and restores it on cleanup.
func setupTestConfig(t *testing.T, migrationsDir string) {
	t.Helper()

	old := AppConfig
	AppConfig = &config.Config{
		MigrationsDir:   migrationsDir,
		TargetPGVersion: config.DefaultTargetPGVersion,
		Format:          config.DefaultFormat,
	}

	t.Cleanup(func() { AppConfig = old })
}

// newAnalyzeCmd creates a fresh cobra.Command wired to runAnalyze with a captured output buffer.
func newAnalyzeCmd(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{
		Use:  "analyze [migration-dir]",
		RunE: runAnalyze,
	}
	cmd.Flags().String("format", "", "output format")
	cmd.Flags().String("min-severity", "low", "hide findings below this severity")
	cmd.Flags().Bool("fail-on-high", false, "exit with non-zero code if high/critical findings exist")
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	return cmd, buf
}

func TestCountUnitsWithFindings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		results  []analyzer.AnalysisResult
		expected int
	}{
		{
			name:     "empty results",
			results:  nil,
			expected: 0,
		},
		{
			name: "no findings",
			results: []analyzer.AnalysisResult{
				{Unit: &migration.Unit{Version: "001"}, Findings: nil},
			},
			expected: 0,
		},
		{
			name: "one with findings",
			results: []analyzer.AnalysisResult{
				{Unit: &migration.Unit{Version: "001"}, Findings: nil},
				{Unit: &migration.Unit{Version: "002"}, Findings: []analyzer.Finding{{Rule: "test"}}},
			},
			expected: 1,
		},
		{
			name: "all with findings",
			results: []analyzer.AnalysisResult{
				{Unit: &migration.Unit{Version: "001"}, Findings: []analyzer.Finding{{Rule: "a"}}},
				{Unit: &migration.Unit{Version: "002"}, Findings: []analyzer.Finding{{Rule: "b"}}},
			},
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, countUnitsWithFindings(tt.results))
		})
	}
}

func TestPrintAnalysisResults_noFindings_printsNoDangers(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	results := []analyzer.AnalysisResult{
		{Unit: &migration.Unit{Version: "001", Name: "safe"}, Findings: nil},
	}

	hasHigh := printAnalysisResults(cmd, results)
	assert.False(t, hasHigh)
	assert.Contains(t, buf.String(), "No dangerous operations detected.")
}

func TestPrintAnalysisResults_withFindings_formatsOutput(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	results := []analyzer.AnalysisResult{
		{
			Unit:        &migration.Unit{Version: "001", Name: "dangerous"},
			MaxSeverity: analyzer.High,
			Findings: []analyzer.Finding{
				{
					Rule:       "create-index-not-concurrent",
					Severity:   analyzer.High,
					Table:      "usuarios",
					Statement:  "CREATE INDEX idx ON usuarios (email)",
					Message:    "Index creation locks table",
					Suggestion: "Use CREATE INDEX CONCURRENTLY",
				},
			},
		},
	}

	hasHigh := printAnalysisResults(cmd, results)
	assert.True(t, hasHigh)

	output := buf.String()
	assert.Contains(t, output, "=== 001_dangerous ===")
	assert.Contains(t, output, "[HIGH]")
	assert.Contains(t, output, "Table: usuarios")
	assert.Contains(t, output, "Rule:  create-index-not-concurrent")
	assert.Contains(t, output, "SQL:   CREATE INDEX idx ON usuarios (email)")
	assert.Contains(t, output, "Fix:   Use CREATE INDEX CONCURRENTLY")
	assert.Contains(t, output, "Found 1 finding(s) across 1 unit(s).")
}

func TestPrintAnalysisResults_lowSeverityOnly_returnsFalse(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	results := []analyzer.AnalysisResult{
		{
			Unit:        &migration.Unit{Version: "001", Name: "mild"},
			MaxSeverity: analyzer.Low,
			Findings: []analyzer.Finding{
				{Rule: "test-rule", Severity: analyzer.Low, Message: "minor concern"},
			},
		},
	}

	hasHigh := printAnalysisResults(cmd, results)
	assert.False(t, hasHigh)
	assert.Contains(t, buf.String(), "Found 1 finding(s)")
}

func TestPrintAnalysisResults_noStatement_skipsSQL(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	results := []analyzer.AnalysisResult{
		{
			Unit:        &migration.Unit{Version: "001", Name: "test"},
			MaxSeverity: analyzer.Medium,
			Findings: []analyzer.Finding{
				{Rule: "test-rule", Severity: analyzer.Medium, Message: "test", Statement: ""},
			},
		},
	}

	printAnalysisResults(cmd, results)
	assert.NotContains(t, buf.String(), "SQL:")
}

func TestRunAnalyze_withTestdata_producesOutput(t *testing.T) { // not parallel: mutates global AppConfig
	dir := filepath.Join("testdata", "migrations")
	setupTestConfig(t, dir)

	cmd, buf := newAnalyzeCmd(t)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "finding(s)")
}

func TestRunAnalyze_emptyDir_printsNoMigrations(t *testing.T) { // not parallel: mutates global AppConfig
	dir := t.TempDir()
	setupTestConfig(t, dir)

	cmd, buf := newAnalyzeCmd(t)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No migration files found.")
}

func TestRunAnalyze_invalidDir_returnsError(t *testing.T) { // not parallel: mutates global AppConfig
	dir := "/nonexistent/path/to/migrations"
	setupTestConfig(t, dir)

	cmd, _ := newAnalyzeCmd(t)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading migrations")
}

func TestRunAnalyze_failOnHigh_returnsError(t *testing.T) { // not parallel: mutates global AppConfig
	dir := filepath.Join("testdata", "migrations")
	setupTestConfig(t, dir)

	cmd, _ := newAnalyzeCmd(t)
	cmd.SetArgs([]string{"--fail-on-high", dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, errHighSeverityFindings)
}

func TestRunAnalyze_usesConfigDir_whenNoArgs(t *testing.T) { // not parallel: mutates global AppConfig
	dir := filepath.Join("testdata", "migrations")
	setupTestConfig(t, dir)

	cmd, buf := newAnalyzeCmd(t)

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "finding(s)")
}

func TestRunAnalyze_jsonFormat_encodesFindings(t *testing.T) { // not parallel: mutates global AppConfig
	dir := filepath.Join("testdata", "migrations")
	setupTestConfig(t, dir)

	cmd, buf := newAnalyzeCmd(t)
	cmd.SetArgs([]string{"--format", "json", dir})

	require.NoError(t, cmd.Execute())

	var findings []jsonFinding
	require.NoError(t, json.Unmarshal(buf.Bytes(), &findings))

	var index *jsonFinding

	for i := range findings {
		if findings[i].Rule == "create-index-not-concurrent" {
			index = &findings[i]
		}
	}

	require.NotNil(t, index)
	assert.Equal(t, "002_indice_rutas_nombre", index.Unit)
	assert.Equal(t, 1, index.Operation)
	assert.Equal(t, "HIGH", index.Severity)
	assert.Equal(t, "rutas", index.Table)
}

func TestRunAnalyze_configuredJSONFormat_usedWithoutFlag(t *testing.T) { // not parallel: mutates global AppConfig
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "V001_crear_rutas.sql"),
		[]byte("CREATE TABLE IF NOT EXISTS rutas (id INTEGER PRIMARY KEY);\n"), 0o600))

	setupTestConfig(t, dir)
	AppConfig.Format = "json"

	cmd, buf := newAnalyzeCmd(t)

	require.NoError(t, cmd.Execute())
	assert.JSONEq(t, "[]", buf.String())
}

func TestRunAnalyze_unknownFormat_returnsError(t *testing.T) { // not parallel: mutates global AppConfig
	dir := filepath.Join("testdata", "migrations")
	setupTestConfig(t, dir)

	cmd, _ := newAnalyzeCmd(t)
	cmd.SetArgs([]string{"--format", "xml", dir})

	err := cmd.Execute()
	require.ErrorIs(t, err, errUnknownFormat)
}

func TestRunAnalyze_minSeverityHigh_hidesLowFindings(t *testing.T) { // not parallel: mutates global AppConfig
	dir := filepath.Join("testdata", "migrations")
	setupTestConfig(t, dir)

	cmd, buf := newAnalyzeCmd(t)
	cmd.SetArgs([]string{"--min-severity", "high", dir})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "create-index-not-concurrent")
	assert.NotContains(t, out, "not-idempotent")
	assert.Contains(t, out, "Found 1 finding(s) across 1 unit(s).")
}

func TestRunAnalyze_unknownMinSeverity_returnsError(t *testing.T) { // not parallel: mutates global AppConfig
	setupTestConfig(t, filepath.Join("testdata", "migrations"))

	cmd, _ := newAnalyzeCmd(t)
	cmd.SetArgs([]string{"--min-severity", "severe"})

	require.ErrorIs(t, cmd.Execute(), analyzer.ErrUnknownSeverity)
}
