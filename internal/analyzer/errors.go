package analyzer

import "errors"

// ErrUnknownSeverity indicates a severity label that matches no level.
var ErrUnknownSeverity = errors.New("unknown severity")
