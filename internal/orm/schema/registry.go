package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry caches the loaded metadata of every resource
type Registry struct {
	schemas   map[string]*ResourceSchema
	validator *SchemaValidator
	mu        sync.RWMutex
}

// NewRegistry creates a new schema registry
func NewRegistry() *Registry {
	return &Registry{
		schemas:   make(map[string]*ResourceSchema),
		validator: NewSchemaValidator(),
	}
}

// Register stores a loaded resource schema
func (r *Registry) Register(schema *ResourceSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[schema.Name]; exists {
		return fmt.Errorf("resource %s is already registered", schema.Name)
	}

	// Relationship targets are not checked here to allow forward references.
	// Cross-resource validation happens in ValidateAll().
	if err := r.validator.ValidateStructural(schema); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", schema.Name, err)
	}

	r.schemas[schema.Name] = schema
	return nil
}

// Get retrieves a resource schema by name
func (r *Registry) Get(name string) (*ResourceSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema, exists := r.schemas[name]
	return schema, exists
}

// List returns the sorted names of all registered resources
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateAll performs cross-resource validation on all registered schemas
func (r *Registry) ValidateAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	graph := NewRelationshipGraph(r.schemas)
	if err := graph.ValidateGraph(); err != nil {
		return fmt.Errorf("relationship validation failed: %w", err)
	}

	return nil
}

// GetDependencyOrder returns resources in dependency order (safe for table creation)
func (r *Registry) GetDependencyOrder() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	graph := NewRelationshipGraph(r.schemas)
	return graph.TopologicalSort()
}

// Count returns the number of registered schemas
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.schemas)
}

// Exists checks if a resource schema exists
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.schemas[name]
	return exists
}

// RegistryStats summarizes the registry contents
type RegistryStats struct {
	TotalResources          int
	TotalFields             int
	TotalRelationships      int
	CompositeIdentifiers    int
	RelationshipsByType     map[RelationType]int
	CircularDependencies    bool
	UnresolvedRelationships int
}

// GetStats returns statistics about the registry
func (r *Registry) GetStats() *RegistryStats {
	r.mu.RLock()
	schemasCopy := make(map[string]*ResourceSchema, len(r.schemas))
	for k, v := range r.schemas {
		schemasCopy[k] = v
	}
	r.mu.RUnlock()

	stats := &RegistryStats{
		TotalResources:      len(schemasCopy),
		RelationshipsByType: make(map[RelationType]int),
	}

	for _, schema := range schemasCopy {
		stats.TotalFields += len(schema.Fields)
		stats.TotalRelationships += schema.Relationships.Len()
		if schema.HasCompositeIdentifier() {
			stats.CompositeIdentifiers++
		}
		for _, rel := range schema.Relationships.Snapshot() {
			stats.RelationshipsByType[rel.Type]++
			if _, known := schemasCopy[rel.TargetResource]; !known {
				stats.UnresolvedRelationships++
			}
		}
	}

	graph := NewRelationshipGraph(schemasCopy)
	stats.CircularDependencies = len(graph.DetectCycles()) > 0

	return stats
}
