package migration

import "errors"

// ErrInvalidManifest indicates a YAML unit failed schema validation.
var ErrInvalidManifest = errors.New("invalid unit manifest")

// ErrDuplicateVersion indicates two unit files share a version.
var ErrDuplicateVersion = errors.New("duplicate unit version")

// ErrEmptyUnit indicates a unit file contains no operations.
var ErrEmptyUnit = errors.New("unit has no operations")
