package executor

import "errors"

// ErrUnitFailed indicates an operation failed with an error that is not
// classified as "already applied". The remaining operations did not run.
var ErrUnitFailed = errors.New("unit failed")

// ErrUnfilteredUpdate indicates a data update had no filter and did not opt
// in to touching every row.
var ErrUnfilteredUpdate = errors.New("update has no where clause and all_rows is not set")

// ErrUnknownOperation indicates an operation kind the runner cannot execute.
var ErrUnknownOperation = errors.New("unknown operation kind")

// ErrUnknownTable indicates a data update names a table the database does not
// have.
var ErrUnknownTable = errors.New("update target table does not exist")

// ErrUnknownColumn indicates a data update sets or filters on a column the
// table does not have.
var ErrUnknownColumn = errors.New("update names a column the table does not have")
