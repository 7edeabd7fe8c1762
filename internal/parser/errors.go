package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import "errors"

// ErrParse indicates the input is not valid PostgreSQL.
var ErrParse = errors.New("parsing SQL")
