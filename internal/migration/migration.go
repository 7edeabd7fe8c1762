package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Unit is one migration unit: a named, ordered list of operations loaded
// from a single file.
type Unit struct {
	Version     string // "001" or "20240101120000", from the filename
	Name        string // "add_comprobante", from the filename
	Description string // manifest description, empty for .sql units
	Operations  []Operation
	Checksum    string // SHA-256 hex digest of the file contents
	FilePath    string
}

// Kind is the type of work an Operation performs.
type Kind string

// Operation kinds.
const (
	KindSQL    Kind = "sql"
	KindUpdate Kind = "update"
	KindSync   Kind = "sync"
)

// Operation is a single step of a unit.
type Operation struct {
	Kind Kind

	// Idempotent marks operations whose "target already reached" failures
	// count as success.
	Idempotent bool
	// MissingTargetOK is set for statements whose own target disappearing is
	// the end state (DROP, DROP COLUMN, RENAME VALUE). Only these let a
	// missing table, column or enum label count as already applied.
	MissingTargetOK bool

	// SQL and NoTransaction apply to KindSQL.
	SQL           string
	NoTransaction bool

	Update *DataUpdate
	Sync   *ModelSync
}

// DataUpdate is a filtered UPDATE. Where clauses are ANDed; a nil value
// matches NULL. An empty Where is only allowed with AllRows.
type DataUpdate struct {
	Table   string
	Set     map[string]any
	Where   map[string]any
	AllRows bool
}

// ModelSync asks the schema synchronizer to bring a registered model's table
// up to date.
type ModelSync struct {
	Model      string
	AllowAlter bool
}

// Describe returns a one-line summary for progress output.
func (o Operation) Describe() string {
	switch o.Kind {
	case KindUpdate:
		if o.Update == nil {
			return "update"
		}

		if o.Update.AllRows {
			return fmt.Sprintf("update %s (all rows)", o.Update.Table)
		}

		return fmt.Sprintf("update %s where %s", o.Update.Table, strings.Join(SortedKeys(o.Update.Where), ", "))
	case KindSync:
		if o.Sync == nil {
			return "sync"
		}

		if o.Sync.AllowAlter {
			return fmt.Sprintf("sync %s (allow alter)", o.Sync.Model)
		}

		return "sync " + o.Sync.Model
	default:
		return firstLine(o.SQL)
	}
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// firstLine returns the first non-comment line of a statement.
func firstLine(sql string) string {
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		return line
	}

	return strings.TrimSpace(sql)
}

// ComputeChecksum returns the SHA-256 hex digest of the given contents.
func ComputeChecksum(contents string) string {
	h := sha256.Sum256([]byte(contents))

	return hex.EncodeToString(h[:])
}
