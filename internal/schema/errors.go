package schema

import "errors"

// ErrSyncUnsupported indicates model sync was requested on a dialect it is
// not available for.
var ErrSyncUnsupported = errors.New("model sync is only supported on PostgreSQL")

// ErrSyncFailed indicates the ORM could not reconcile a table.
var ErrSyncFailed = errors.New("model sync failed")
