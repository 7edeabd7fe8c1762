package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Class is the closed set of outcomes a failed statement maps onto.
type Class int

const (
	// Fatal failures abort the run.
	Fatal Class = iota
	// Recoverable failures mean the change is already in place.
	Recoverable
	// Conditional failures mean an object is missing. That is success only
	// for idempotent statements whose end state is the object's absence.
	Conditional
)

func (c Class) String() string {
	switch c {
	case Recoverable:
		return "recoverable"
	case Conditional:
		return "conditional"
	default:
		return "fatal"
	}
}

// Kind names what an error says about the database object.
type Kind string

// Error kinds.
const (
	KindUnknown          Kind = ""
	KindDuplicateObject  Kind = "duplicate_object"
	KindDuplicateColumn  Kind = "duplicate_column"
	KindDuplicateTable   Kind = "duplicate_table"
	KindDuplicateSchema  Kind = "duplicate_schema"
	KindDuplicateFunc    Kind = "duplicate_function"
	KindDuplicateDB      Kind = "duplicate_database"
	KindUndefinedColumn  Kind = "undefined_column"
	KindUndefinedTable   Kind = "undefined_table"
	KindUndefinedObject  Kind = "undefined_object"
	KindMissingEnumLabel Kind = "missing_enum_label"
	KindConnection       Kind = "connection"
	KindLockTimeout      Kind = "lock_timeout"
)

// Classification is the result of Classify.
type Classification struct {
	Class Class
	Kind  Kind
	// Code is the backend's own error code when it has one (SQLSTATE).
	Code string
}

// PostgreSQL SQLSTATE codes the runner cares about.
const (
	sqlstateDuplicateObject   = "42710"
	sqlstateDuplicateColumn   = "42701"
	sqlstateDuplicateTable    = "42P07"
	sqlstateDuplicateSchema   = "42P06"
	sqlstateDuplicateFunction = "42723"
	sqlstateDuplicateDatabase = "42P04"
	sqlstateDuplicateAlias    = "42712"
	sqlstateUndefinedColumn   = "42703"
	sqlstateUndefinedTable    = "42P01"
	sqlstateUndefinedObject   = "42704"
	sqlstateInvalidParameter  = "22023"
	sqlstateLockNotAvailable  = "55P03"
)

var pgRecoverable = map[string]Kind{
	sqlstateDuplicateObject:   KindDuplicateObject,
	sqlstateDuplicateColumn:   KindDuplicateColumn,
	sqlstateDuplicateTable:    KindDuplicateTable,
	sqlstateDuplicateSchema:   KindDuplicateSchema,
	sqlstateDuplicateFunction: KindDuplicateFunc,
	sqlstateDuplicateDatabase: KindDuplicateDB,
	sqlstateDuplicateAlias:    KindDuplicateObject,
}

var pgConditional = map[string]Kind{
	sqlstateUndefinedColumn: KindUndefinedColumn,
	sqlstateUndefinedTable:  KindUndefinedTable,
	sqlstateUndefinedObject: KindUndefinedObject,
}

// Classify maps a backend error onto Recoverable, Conditional or Fatal.
// It is the only place that inspects driver-specific error shapes.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Class: Fatal}
	}

	if errors.Is(err, ErrConnectionFailed) {
		return Classification{Class: Fatal, Kind: KindConnection}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPg(pgErr)
	}

	return classifyMessage(err.Error())
}

func classifyPg(e *pgconn.PgError) Classification {
	if kind, ok := pgRecoverable[e.Code]; ok {
		return Classification{Class: Recoverable, Kind: kind, Code: e.Code}
	}

	if kind, ok := pgConditional[e.Code]; ok {
		return Classification{Class: Conditional, Kind: kind, Code: e.Code}
	}

	// 22023 is broad; only the enum-label form means "already renamed".
	if e.Code == sqlstateInvalidParameter && strings.Contains(e.Message, "enum label") {
		return Classification{Class: Conditional, Kind: KindMissingEnumLabel, Code: e.Code}
	}

	if e.Code == sqlstateLockNotAvailable {
		return Classification{Class: Fatal, Kind: KindLockTimeout, Code: e.Code}
	}

	return Classification{Class: Fatal, Code: e.Code}
}

// classifyMessage handles SQLite and libSQL, whose drivers report these
// conditions only in the message text.
func classifyMessage(msg string) Classification {
	m := strings.ToLower(msg)

	switch {
	case strings.Contains(m, "duplicate column name"):
		return Classification{Class: Recoverable, Kind: KindDuplicateColumn}
	case strings.Contains(m, "already exists"):
		if strings.Contains(m, "table") {
			return Classification{Class: Recoverable, Kind: KindDuplicateTable}
		}

		return Classification{Class: Recoverable, Kind: KindDuplicateObject}
	case strings.Contains(m, "no such column"):
		return Classification{Class: Conditional, Kind: KindUndefinedColumn}
	case strings.Contains(m, "no such table"):
		return Classification{Class: Conditional, Kind: KindUndefinedTable}
	case strings.Contains(m, "database is locked"):
		return Classification{Class: Fatal, Kind: KindLockTimeout}
	default:
		return Classification{Class: Fatal}
	}
}

// IsAlreadyApplied reports whether err means the change is already in place.
func IsAlreadyApplied(err error) bool {
	return err != nil && Classify(err).Class == Recoverable
}
