package migration

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/aqasim81/routedb/internal/parser"
)

//go:embed manifest.schema.json
var manifestSchema string

//nolint:gochecknoglobals // compiled once, used by every manifest load
var manifestSchemaLoader = gojsonschema.NewStringLoader(manifestSchema)

type manifest struct {
	Description string       `yaml:"description"`
	Operations  []manifestOp `yaml:"operations"`
}

type manifestOp struct {
	SQL           string          `yaml:"sql"`
	Idempotent    *bool           `yaml:"idempotent"`
	NoTransaction bool            `yaml:"no_transaction"`
	Update        *manifestUpdate `yaml:"update"`
	Sync          *manifestSync   `yaml:"sync"`
}

type manifestUpdate struct {
	Table   string         `yaml:"table"`
	Set     map[string]any `yaml:"set"`
	Where   map[string]any `yaml:"where"`
	AllRows bool           `yaml:"all_rows"`
}

type manifestSync struct {
	Model      string `yaml:"model"`
	AllowAlter bool   `yaml:"allow_alter"`
}

// ValidateManifest checks raw YAML against the manifest JSON schema.
func ValidateManifest(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	result, err := gojsonschema.Validate(manifestSchemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(msgs, "; "))
	}

	return nil
}

// ParseManifest validates and decodes a YAML unit into its description and
// operations. SQL entries are split into one operation per statement.
func ParseManifest(data []byte) (string, []Operation, error) {
	if err := ValidateManifest(data); err != nil {
		return "", nil, err
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	var ops []Operation

	for i, mo := range m.Operations {
		switch {
		case mo.Update != nil:
			ops = append(ops, Operation{
				Kind:       KindUpdate,
				Idempotent: boolOr(mo.Idempotent, true),
				Update: &DataUpdate{
					Table:   mo.Update.Table,
					Set:     mo.Update.Set,
					Where:   mo.Update.Where,
					AllRows: mo.Update.AllRows,
				},
			})
		case mo.Sync != nil:
			ops = append(ops, Operation{
				Kind:       KindSync,
				Idempotent: boolOr(mo.Idempotent, true),
				Sync:       &ModelSync{Model: mo.Sync.Model, AllowAlter: mo.Sync.AllowAlter},
			})
		default:
			sqlOps, err := sqlOperations(mo.SQL)
			if err != nil {
				return "", nil, fmt.Errorf("operation %d: %w", i+1, err)
			}

			for j := range sqlOps {
				if mo.Idempotent != nil {
					sqlOps[j].Idempotent = *mo.Idempotent
				}

				sqlOps[j].NoTransaction = sqlOps[j].NoTransaction || mo.NoTransaction
			}

			ops = append(ops, sqlOps...)
		}
	}

	return m.Description, ops, nil
}

// sqlOperations splits a SQL script into one operation per statement.
func sqlOperations(sql string) ([]Operation, error) {
	stmts, err := parser.Split(sql)
	if err != nil {
		return nil, err
	}

	ops := make([]Operation, 0, len(stmts))
	for _, s := range stmts {
		ops = append(ops, Operation{
			Kind:            KindSQL,
			SQL:             s.SQL,
			Idempotent:      s.Idempotent,
			MissingTargetOK: s.MissingTargetOK,
			NoTransaction:   s.NoTransaction,
		})
	}

	return ops, nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}

	return *p
}
