package analyzer

import (
	"fmt"

	"github.com/aqasim81/routedb/internal/migration"
	"github.com/aqasim81/routedb/internal/parser"
)

const statementDisplayLen = 120

// Option configures the Analyzer.
type Option func(*Analyzer)

// Analyzer runs registered rules against the operations of migration units.
type Analyzer struct {
	registry  *Registry
	parseFn   func(string) (*parser.ParseResult, error)
	pgVersion int
}

// New creates a new Analyzer with the given options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		registry:  NewRegistry(),
		parseFn:   parser.Parse,
		pgVersion: 14, //nolint:mnd // default PostgreSQL version
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WithRegistry sets a custom rule registry.
func WithRegistry(r *Registry) Option {
	return func(a *Analyzer) { a.registry = r }
}

// WithPGVersion sets the target PostgreSQL version.
func WithPGVersion(v int) Option {
	return func(a *Analyzer) { a.pgVersion = v }
}

// WithParser overrides the SQL parser function (useful for testing).
func WithParser(fn func(string) (*parser.ParseResult, error)) Option {
	return func(a *Analyzer) { a.parseFn = fn }
}

// Analyze checks every operation of a unit and returns all findings.
// SQL operations go through the statement rules; every operation, whatever
// its kind, goes through the operation rules.
func (a *Analyzer) Analyze(u *migration.Unit) (*AnalysisResult, error) {
	var findings []Finding

	for i := range u.Operations {
		op := &u.Operations[i]

		ctx := &RuleContext{
			Unit:            u,
			Operation:       op,
			OpIndex:         i,
			TargetPGVersion: a.pgVersion,
			SQL:             op.SQL,
		}

		for _, rule := range a.registry.OperationRules() {
			findings = append(findings, stamp(rule.CheckOperation(op, ctx), op.Describe())...)
		}

		if op.Kind != migration.KindSQL {
			continue
		}

		result, err := a.parseFn(op.SQL)
		if err != nil {
			return nil, fmt.Errorf("parsing unit %s operation %d: %w", u.Version, i+1, err)
		}

		for j, stmt := range result.Stmts {
			ctx.StmtIndex = j
			text := result.StmtText(j)

			for _, rule := range a.registry.Rules() {
				findings = append(findings, stamp(rule.Check(stmt, ctx), text)...)
			}
		}
	}

	maxSeverity := Safe

	for i := range findings {
		if findings[i].Severity > maxSeverity {
			maxSeverity = findings[i].Severity
		}
	}

	return &AnalysisResult{
		Unit:        u,
		Findings:    findings,
		MaxSeverity: maxSeverity,
	}, nil
}

// AnalyzeAll analyzes multiple units and returns results for each.
func (a *Analyzer) AnalyzeAll(units []migration.Unit) ([]AnalysisResult, error) {
	results := make([]AnalysisResult, 0, len(units))

	for i := range units {
		r, err := a.Analyze(&units[i])
		if err != nil {
			return nil, err
		}

		results = append(results, *r)
	}

	return results, nil
}

// stamp fills in the display text of findings that rules left empty.
func stamp(fs []Finding, text string) []Finding {
	for i := range fs {
		if fs[i].Statement == "" {
			fs[i].Statement = TruncateSQL(text, statementDisplayLen)
		}
	}

	return fs
}
