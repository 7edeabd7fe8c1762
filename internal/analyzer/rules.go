package analyzer

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/routedb/internal/migration"
)

// Rule inspects a single parsed SQL statement.
type Rule interface {
	// ID returns a unique kebab-case identifier for this rule.
	ID() string
	// Check examines a single parsed statement and returns any findings.
	Check(stmt *pg_query.RawStmt, ctx *RuleContext) []Finding
}

// OperationRule inspects a whole operation, whatever its kind.
type OperationRule interface {
	ID() string
	CheckOperation(op *migration.Operation, ctx *RuleContext) []Finding
}

// RuleContext provides contextual information to rules during analysis.
type RuleContext struct {
	Unit            *migration.Unit
	Operation       *migration.Operation
	OpIndex         int
	TargetPGVersion int
	StmtIndex       int
	SQL             string // The operation's SQL text, empty for update and sync
}

// Registry holds a collection of rules.
type Registry struct {
	rules   []Rule
	opRules []OperationRule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a statement rule to the registry.
func (r *Registry) Register(rule Rule) {
	r.rules = append(r.rules, rule)
}

// RegisterOperation adds an operation rule to the registry.
func (r *Registry) RegisterOperation(rule OperationRule) {
	r.opRules = append(r.opRules, rule)
}

// Rules returns all registered statement rules.
func (r *Registry) Rules() []Rule {
	return r.rules
}

// OperationRules returns all registered operation rules.
func (r *Registry) OperationRules() []OperationRule {
	return r.opRules
}

// TableName extracts a qualified table name from a RangeVar.
func TableName(rv *pg_query.RangeVar) string {
	if rv == nil {
		return "<unknown>"
	}

	if rv.Schemaname != "" {
		return rv.Schemaname + "." + rv.Relname
	}

	return rv.Relname
}

// NameList joins a list of String nodes, as found in qualified names.
func NameList(nodes []*pg_query.Node) string {
	parts := make([]string, 0, len(nodes))

	for _, n := range nodes {
		if s, ok := n.Node.(*pg_query.Node_String_); ok {
			parts = append(parts, s.String_.Sval)
		}
	}

	return strings.Join(parts, ".")
}
