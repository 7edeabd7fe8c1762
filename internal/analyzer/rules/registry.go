package rules

import "github.com/aqasim81/routedb/internal/analyzer"

// NewDefaultRegistry returns a Registry with all built-in detection rules.
func NewDefaultRegistry() *analyzer.Registry {
	r := analyzer.NewRegistry()
	r.Register(NewCreateIndexRule())
	r.Register(NewAlterTableRule())
	r.Register(NewDropRule())
	r.Register(NewExplicitLockRule())
	r.Register(NewRenameRule())
	r.Register(NewUnfilteredDMLRule())

	r.RegisterOperation(NewUpdateAllRowsRule())
	r.RegisterOperation(NewSyncAlterRule())
	r.RegisterOperation(NewNotIdempotentRule())

	return r
}
