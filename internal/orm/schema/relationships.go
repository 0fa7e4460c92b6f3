package schema

import (
	"fmt"
	"sort"
	"strings"
)

// RelationshipGraph represents the foreign key dependencies between resources
type RelationshipGraph struct {
	nodes map[string]*ResourceSchema
	edges map[string][]string // resource -> dependencies
}

// NewRelationshipGraph creates a new relationship graph. Edges come from
// owning to-one relationships whose target is a known resource; self
// references are ignored.
func NewRelationshipGraph(schemas map[string]*ResourceSchema) *RelationshipGraph {
	graph := &RelationshipGraph{
		nodes: schemas,
		edges: make(map[string][]string),
	}

	for _, name := range sortedNames(schemas) {
		for _, rel := range schemas[name].Relationships.Snapshot() {
			if !rel.IsToOne() || !rel.IsOwningSide() {
				continue
			}
			if rel.TargetResource == name {
				continue
			}
			if _, known := schemas[rel.TargetResource]; !known {
				continue
			}
			graph.edges[name] = appendUnique(graph.edges[name], rel.TargetResource)
		}
	}

	return graph
}

// DetectCycles detects circular dependencies in the relationship graph
func (g *RelationshipGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recursionStack := make(map[string]bool)

	var dfs func(node string, path []string) bool
	dfs = func(node string, path []string) bool {
		visited[node] = true
		recursionStack[node] = true
		path = append(path, node)

		for _, neighbor := range g.edges[node] {
			if !visited[neighbor] {
				if dfs(neighbor, path) {
					return true
				}
			} else if recursionStack[neighbor] {
				cycleStart := -1
				for i, n := range path {
					if n == neighbor {
						cycleStart = i
						break
					}
				}
				if cycleStart >= 0 {
					cycle := make([]string, len(path)-cycleStart)
					copy(cycle, path[cycleStart:])
					cycles = append(cycles, cycle)
				}
				return true
			}
		}

		recursionStack[node] = false
		return false
	}

	for _, node := range sortedNames(g.nodes) {
		if !visited[node] {
			dfs(node, []string{})
		}
	}

	return cycles
}

// TopologicalSort returns resources in dependency order (dependencies first).
// Ties are broken by name so the order is stable.
func (g *RelationshipGraph) TopologicalSort() ([]string, error) {
	outDegree := make(map[string]int)
	for node := range g.nodes {
		outDegree[node] = len(g.edges[node])
	}

	reverseEdges := make(map[string][]string)
	for source, targets := range g.edges {
		for _, target := range targets {
			reverseEdges[target] = append(reverseEdges[target], source)
		}
	}

	queue := []string{}
	for _, node := range sortedNames(g.nodes) {
		if outDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := []string{}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		dependents := reverseEdges[node]
		sort.Strings(dependents)
		for _, dependent := range dependents {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		cycles := g.DetectCycles()
		if len(cycles) > 0 {
			return nil, fmt.Errorf("circular dependency detected: %s", formatCycles(cycles))
		}
		return nil, fmt.Errorf("circular dependency detected")
	}

	return result, nil
}

// GetDependencies returns all direct dependencies of a resource
func (g *RelationshipGraph) GetDependencies(resource string) []string {
	deps, exists := g.edges[resource]
	if !exists {
		return []string{}
	}
	return deps
}

// GetDependents returns all resources that depend on the given resource
func (g *RelationshipGraph) GetDependents(resource string) []string {
	dependents := []string{}
	for _, node := range sortedNames(g.nodes) {
		for _, dep := range g.edges[node] {
			if dep == resource {
				dependents = append(dependents, node)
				break
			}
		}
	}
	return dependents
}

// ValidateGraph reports cycles and relationships that still point at a
// resource nobody loaded, which usually means an abstract target was never
// resolved
func (g *RelationshipGraph) ValidateGraph() error {
	cycles := g.DetectCycles()
	if len(cycles) > 0 {
		return fmt.Errorf("circular dependencies detected:\n%s",
			formatCycles(cycles))
	}

	for _, name := range sortedNames(g.nodes) {
		for _, rel := range g.nodes[name].Relationships.Snapshot() {
			if _, exists := g.nodes[rel.TargetResource]; !exists {
				return fmt.Errorf("resource %s references unknown resource %s in relationship %s",
					name, rel.TargetResource, rel.FieldName)
			}
		}
	}

	return nil
}

// formatCycles formats cycle information for error messages
func formatCycles(cycles [][]string) string {
	var b strings.Builder
	for i, cycle := range cycles {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("  Cycle %d: %s -> %s",
			i+1,
			strings.Join(cycle, " -> "),
			cycle[0]))
	}
	return b.String()
}

func sortedNames(schemas map[string]*ResourceSchema) []string {
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
