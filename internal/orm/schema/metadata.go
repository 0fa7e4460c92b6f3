package schema

import (
	"fmt"
)

// ResourceSchema is the loaded mapping metadata of one persistable resource
type ResourceSchema struct {
	Name          string
	Documentation string
	FilePath      string

	Fields        map[string]*Field
	Relationships *RelationshipSet

	// Identifier lists the identifier components in order. A component is
	// either a field name or the field name of an identifier relationship.
	Identifier []string

	TableName string
}

// NewResourceSchema creates a new ResourceSchema
func NewResourceSchema(name string) *ResourceSchema {
	return &ResourceSchema{
		Name:          name,
		Fields:        make(map[string]*Field),
		Relationships: NewRelationshipSet(),
		TableName:     ToSnakeCase(name),
	}
}

// AddField adds a scalar field
func (r *ResourceSchema) AddField(field *Field) {
	r.Fields[field.Name] = field
}

// HasField returns true if the resource has a field with the given name
func (r *ResourceSchema) HasField(name string) bool {
	_, exists := r.Fields[name]
	return exists
}

// HasRelationship returns true if the resource has a relationship with the given name
func (r *ResourceSchema) HasRelationship(name string) bool {
	return r.Relationships.Has(name)
}

// GetRelationship returns the relationship mapped under fieldName
func (r *ResourceSchema) GetRelationship(fieldName string) (*Relationship, error) {
	rel, ok := r.Relationships.Get(fieldName)
	if !ok {
		return nil, fmt.Errorf("resource %s has no relationship %s", r.Name, fieldName)
	}
	return rel, nil
}

// GetIdentifierComponents returns the ordered identifier component names
func (r *ResourceSchema) GetIdentifierComponents() []string {
	ids := make([]string, len(r.Identifier))
	copy(ids, r.Identifier)
	return ids
}

// HasCompositeIdentifier reports whether the identifier has several components
func (r *ResourceSchema) HasCompositeIdentifier() bool {
	return len(r.Identifier) > 1
}

// IsRelationshipComponent reports whether an identifier component is itself
// a relationship to another resource
func (r *ResourceSchema) IsRelationshipComponent(name string) bool {
	return r.Relationships.Has(name)
}

// RemoveRelationship unmaps fieldName. It reports whether anything was removed.
func (r *ResourceSchema) RemoveRelationship(fieldName string) bool {
	return r.Relationships.remove(fieldName)
}

// AddManyToOne maps rel as a many-to-one relationship
func (r *ResourceSchema) AddManyToOne(rel *Relationship) error {
	rel.Type = RelationshipManyToOne
	return r.addRelationship(rel)
}

// AddOneToOne maps rel as a one-to-one relationship
func (r *ResourceSchema) AddOneToOne(rel *Relationship) error {
	rel.Type = RelationshipOneToOne
	return r.addRelationship(rel)
}

// AddOneToMany maps rel as a one-to-many relationship
func (r *ResourceSchema) AddOneToMany(rel *Relationship) error {
	rel.Type = RelationshipOneToMany
	return r.addRelationship(rel)
}

// AddManyToMany maps rel as a many-to-many relationship
func (r *ResourceSchema) AddManyToMany(rel *Relationship) error {
	rel.Type = RelationshipManyToMany
	return r.addRelationship(rel)
}

// AddRelationship maps rel using the add operation for its Type
func (r *ResourceSchema) AddRelationship(rel *Relationship) error {
	switch rel.Type {
	case RelationshipManyToOne:
		return r.AddManyToOne(rel)
	case RelationshipOneToOne:
		return r.AddOneToOne(rel)
	case RelationshipOneToMany:
		return r.AddOneToMany(rel)
	case RelationshipManyToMany:
		return r.AddManyToMany(rel)
	default:
		return &ValidationError{Resource: r.Name, Field: rel.FieldName, Message: fmt.Sprintf("unknown relationship type %d", rel.Type)}
	}
}

func (r *ResourceSchema) addRelationship(rel *Relationship) error {
	if rel.FieldName != "" && r.Relationships.Has(rel.FieldName) {
		return &ValidationError{Resource: r.Name, Field: rel.FieldName, Message: "relationship is already mapped"}
	}
	// Only owning to-one sides keep top-level join columns
	if !rel.IsOwningSide() || !rel.IsToOne() {
		rel.JoinColumns = nil
		rel.JoinColumnFieldNames = nil
	}
	if err := ValidateRelationship(r, rel); err != nil {
		return err
	}

	r.applyDefaults(rel)
	r.Relationships.put(rel)
	return nil
}

// applyDefaults fills in the join configuration an owning side leaves out
func (r *ResourceSchema) applyDefaults(rel *Relationship) {
	if !rel.IsOwningSide() {
		return
	}

	if rel.IsToOne() {
		if len(rel.JoinColumns) == 0 {
			rel.JoinColumns = []JoinColumn{{
				Name:                 toSnakeCase(rel.FieldName) + "_id",
				ReferencedColumnName: "id",
			}}
		}
		rel.JoinColumnFieldNames = make(map[string]string, len(rel.JoinColumns))
		for i := range rel.JoinColumns {
			col := &rel.JoinColumns[i]
			if col.ReferencedColumnName == "" {
				col.ReferencedColumnName = "id"
			}
			if rel.Id && col.Nullable == nil {
				notNull := false
				col.Nullable = &notNull
			}
			rel.JoinColumnFieldNames[col.Name] = col.Name
		}
		return
	}

	// Owning many-to-many
	source := ToSnakeCase(r.Name)
	target := ToSnakeCase(rel.TargetResource)
	if rel.JoinTable == nil {
		rel.JoinTable = &JoinTable{}
	}
	jt := rel.JoinTable
	if jt.Name == "" {
		jt.Name = source + "_" + target
	}
	if len(jt.JoinColumns) == 0 {
		jt.JoinColumns = []JoinColumn{{Name: source + "_id", ReferencedColumnName: "id", OnDelete: CascadeCascade}}
	}
	if len(jt.InverseJoinColumns) == 0 {
		jt.InverseJoinColumns = []JoinColumn{{Name: target + "_id", ReferencedColumnName: "id", OnDelete: CascadeCascade}}
	}
	for i := range jt.JoinColumns {
		if jt.JoinColumns[i].ReferencedColumnName == "" {
			jt.JoinColumns[i].ReferencedColumnName = "id"
		}
	}
	for i := range jt.InverseJoinColumns {
		if jt.InverseJoinColumns[i].ReferencedColumnName == "" {
			jt.InverseJoinColumns[i].ReferencedColumnName = "id"
		}
	}
}

// IdentifierColumns returns the identifier columns of the resource's table in
// identifier order, expanding identifier relationships into their join columns
func (r *ResourceSchema) IdentifierColumns() ([]string, error) {
	var cols []string
	for _, id := range r.Identifier {
		if rel, ok := r.Relationships.Get(id); ok {
			if len(rel.JoinColumns) == 0 {
				return nil, fmt.Errorf("resource %s: identifier relationship %s has no join columns", r.Name, id)
			}
			for _, jc := range rel.JoinColumns {
				cols = append(cols, jc.Name)
			}
			continue
		}
		field, ok := r.Fields[id]
		if !ok {
			return nil, fmt.Errorf("resource %s: identifier %s is not a field or relationship", r.Name, id)
		}
		cols = append(cols, field.ColumnName())
	}
	return cols, nil
}
