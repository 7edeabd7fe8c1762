package database

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies the SQL flavour spoken by a connection.
type Dialect string

// Supported dialects. LibSQL speaks the SQLite dialect over the network.
const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// target is a parsed database URL: the dialect, the database/sql driver name
// for non-pgx backends, and the DSN handed to that driver.
type target struct {
	dialect Dialect
	driver  string
	dsn     string
}

// DetectDialect reports which dialect a database URL belongs to.
func DetectDialect(databaseURL string) (Dialect, error) {
	t, err := parseTarget(databaseURL)
	if err != nil {
		return "", err
	}

	return t.dialect, nil
}

func parseTarget(databaseURL string) (target, error) {
	raw := strings.TrimSpace(databaseURL)
	lower := strings.ToLower(raw)

	switch {
	case raw == "":
		return target{}, fmt.Errorf("%w: empty URL", ErrInvalidDatabaseURL)
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return target{dialect: Postgres, dsn: raw}, nil
	case strings.HasPrefix(lower, "libsql://"):
		return target{dialect: SQLite, driver: "libsql", dsn: raw}, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return target{dialect: SQLite, driver: "sqlite", dsn: raw[len("sqlite://"):]}, nil
	case strings.HasPrefix(lower, "sqlite3://"):
		return target{dialect: SQLite, driver: "sqlite", dsn: raw[len("sqlite3://"):]}, nil
	case lower == ":memory:", strings.HasPrefix(lower, "file:"),
		strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".sqlite3"):
		return target{dialect: SQLite, driver: "sqlite", dsn: raw}, nil
	default:
		return target{}, fmt.Errorf("%w: %q", ErrUnsupportedDialect, redactScheme(raw))
	}
}

// redactScheme keeps only the scheme of an unrecognised URL so error
// messages never echo credentials.
func redactScheme(raw string) string {
	if i := strings.Index(raw, "://"); i >= 0 {
		return raw[:i] + "://..."
	}

	return "..."
}

// Rebind rewrites ?-style placeholders into the dialect's native form.
// Question marks inside quoted literals and quoted identifiers are left alone.
func Rebind(d Dialect, query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder

	b.Grow(len(query) + 8) //nolint:mnd // room for a few two-digit placeholders

	n := 0

	var quote byte

	for i := 0; i < len(query); i++ {
		c := query[i]

		switch {
		case quote != 0:
			// A doubled quote closes and reopens, which keeps the span.
			if c == quote {
				quote = 0
			}

			b.WriteByte(c)
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(c)
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}
