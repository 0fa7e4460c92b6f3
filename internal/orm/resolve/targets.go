// Package resolve rewrites relationships declared against abstract target
// types so that they point at the concrete resource configured for each one.
package resolve

import (
	"sort"
	"strings"

	"github.com/conduit-lang/retarget/internal/orm/mapping"
	"github.com/conduit-lang/retarget/internal/orm/schema"
)

// namespaceSeparators are stripped from the front of type names
const namespaceSeparators = `\`

// Resolution is the registry entry for one abstract type
type Resolution struct {
	ConcreteType string
	// Overrides is a partial relationship definition laid over every
	// relationship that targets the abstract type. It always carries the
	// concrete type under schema.KeyTarget.
	Overrides mapping.Value
}

// TargetRegistry maps abstract type names to their resolution.
//
// The registry is filled during configuration and only read once metadata
// starts loading. It is not synchronized: all Register calls must happen
// before the first LoadMetadata event.
type TargetRegistry struct {
	entries map[string]*Resolution
}

// NewTargetRegistry creates an empty registry
func NewTargetRegistry() *TargetRegistry {
	return &TargetRegistry{
		entries: make(map[string]*Resolution),
	}
}

// Register resolves abstractType to concreteType. overrides is a partial
// relationship definition in value form (see schema.Relationship.ToValue);
// nil means no overrides. Registering the same abstract type again replaces
// the previous entry.
func (r *TargetRegistry) Register(abstractType, concreteType string, overrides map[string]interface{}) {
	r.RegisterValue(abstractType, concreteType, mapping.FromAny(overrides))
}

// RegisterValue is Register with overrides already in value form
func (r *TargetRegistry) RegisterValue(abstractType, concreteType string, overrides mapping.Value) {
	concrete := Normalize(concreteType)

	ov := overrides.Clone()
	if ov.Kind() != mapping.KindMapping {
		ov = mapping.EmptyMapping()
	}
	ov.Set(schema.KeyTarget, mapping.Scalar(concrete))

	r.entries[Normalize(abstractType)] = &Resolution{
		ConcreteType: concrete,
		Overrides:    ov,
	}
}

// Lookup returns the resolution for targetType. The name is normalized the
// same way Register normalizes, so a leading namespace separator does not
// affect matching.
func (r *TargetRegistry) Lookup(targetType string) (*Resolution, bool) {
	res, ok := r.entries[Normalize(targetType)]
	return res, ok
}

// Len returns the number of registered abstract types
func (r *TargetRegistry) Len() int {
	return len(r.entries)
}

// AbstractTypes returns the registered abstract type names, sorted
func (r *TargetRegistry) AbstractTypes() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Normalize strips leading namespace separators from a type name
func Normalize(typeName string) string {
	return strings.TrimLeft(typeName, namespaceSeparators)
}
