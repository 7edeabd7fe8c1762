package models

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownModel indicates a sync operation named a model that is not registered.
var ErrUnknownModel = errors.New("unknown model")

type tabler interface {
	TableName() string
}

// registry maps table names to a constructor for a fresh model value.
//
//nolint:gochecknoglobals // fixed set of application tables
var registry = map[string]func() any{}

func register(fn func() tabler) {
	registry[fn().TableName()] = func() any { return fn() }
}

//nolint:gochecknoinits // builds the static table registry
func init() {
	register(func() tabler { return &User{} })
	register(func() tabler { return &Driver{} })
	register(func() tabler { return &Route{} })
	register(func() tabler { return &Frequency{} })
	register(func() tabler { return &CashClosure{} })
	register(func() tabler { return &Transaction{} })
}

// Lookup returns a new pointer to the model registered under table name.
func Lookup(name string) (any, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownModel, name, Names())
	}

	return fn(), nil
}

// Names returns the registered table names in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}
