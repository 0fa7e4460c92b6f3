package schema

// RelationshipSet is an insertion-ordered collection of relationship
// definitions keyed by field name.
//
// There is no live iterator: callers that walk the set while relationships
// are being replaced must iterate a Snapshot. Re-inserting a field after
// removing it places it at the end.
type RelationshipSet struct {
	order []string
	byKey map[string]*Relationship
}

// NewRelationshipSet creates an empty set
func NewRelationshipSet() *RelationshipSet {
	return &RelationshipSet{
		byKey: make(map[string]*Relationship),
	}
}

// Get returns the relationship mapped under fieldName
func (s *RelationshipSet) Get(fieldName string) (*Relationship, bool) {
	rel, ok := s.byKey[fieldName]
	return rel, ok
}

// Has reports whether fieldName is mapped
func (s *RelationshipSet) Has(fieldName string) bool {
	_, ok := s.byKey[fieldName]
	return ok
}

// Len returns the number of relationships
func (s *RelationshipSet) Len() int {
	return len(s.order)
}

// Names returns the field names in insertion order
func (s *RelationshipSet) Names() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Snapshot returns the relationships in insertion order. The slice is
// detached from the set; the definitions are shared.
func (s *RelationshipSet) Snapshot() []*Relationship {
	out := make([]*Relationship, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byKey[name])
	}
	return out
}

func (s *RelationshipSet) put(rel *Relationship) {
	if _, exists := s.byKey[rel.FieldName]; !exists {
		s.order = append(s.order, rel.FieldName)
	}
	s.byKey[rel.FieldName] = rel
}

func (s *RelationshipSet) remove(fieldName string) bool {
	if _, ok := s.byKey[fieldName]; !ok {
		return false
	}
	delete(s.byKey, fieldName)
	for i, name := range s.order {
		if name == fieldName {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}
