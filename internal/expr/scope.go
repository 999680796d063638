package expr

import (
	"maps"
	"slices"

	"github.com/vk/mathscope/internal/value"
)

// Scope is a read-only view of the values computed so far, keyed by name.
type Scope interface {
	Lookup(name string) (value.Value, bool)
	Names() []string
}

// MapScope is a Scope backed by a map. The map is never modified through it.
type MapScope map[string]value.Value

func (s MapScope) Lookup(name string) (value.Value, bool) {
	v, ok := s[name]
	return v, ok
}

// Names returns the defined names, sorted.
func (s MapScope) Names() []string {
	return slices.Sorted(maps.Keys(s))
}
