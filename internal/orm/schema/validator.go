package schema

import (
	"fmt"
	"strings"
)

// ValidationError represents a schema validation error with context
type ValidationError struct {
	Resource string
	Field    string
	Message  string
	Hint     string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder

	if e.Resource != "" {
		b.WriteString(e.Resource)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}

	return b.String()
}

var validFetchModes = map[string]bool{
	"":           true,
	"lazy":       true,
	"eager":      true,
	"extra_lazy": true,
}

var validCascades = map[string]bool{
	"persist": true,
	"remove":  true,
	"merge":   true,
	"detach":  true,
	"refresh": true,
	"all":     true,
}

// ValidateRelationship checks a relationship definition before it is mapped
// onto resource. Join columns that only lack a referenced column are
// accepted; the add operations default those to "id".
func ValidateRelationship(resource *ResourceSchema, rel *Relationship) error {
	fail := func(msg, hint string) error {
		return &ValidationError{Resource: resource.Name, Field: rel.FieldName, Message: msg, Hint: hint}
	}

	if rel.FieldName == "" {
		return fail("relationship has no field name", "")
	}
	if rel.TargetResource == "" {
		return fail("relationship has no target resource", "")
	}
	if resource.HasField(rel.FieldName) {
		return fail("field is already mapped as a scalar field", "")
	}
	if !validFetchModes[rel.Fetch] {
		return fail(fmt.Sprintf("invalid fetch mode %q", rel.Fetch), "use lazy, eager or extra_lazy")
	}
	for _, c := range rel.Cascade {
		if !validCascades[c] {
			return fail(fmt.Sprintf("invalid cascade option %q", c), "use persist, remove, merge, detach, refresh or all")
		}
	}

	switch rel.Type {
	case RelationshipOneToMany:
		if rel.MappedBy == "" {
			return fail("one_to_many relationship requires mapped_by", "one_to_many is always the inverse side of a many_to_one")
		}
	case RelationshipManyToOne:
		if rel.MappedBy != "" {
			return fail("many_to_one relationship cannot be an inverse side", "remove mapped_by")
		}
		if rel.OrphanRemoval {
			return fail("orphan_removal is not supported on many_to_one", "")
		}
	}

	if rel.Id && !(rel.IsToOne() && rel.IsOwningSide()) {
		return fail("only owning to-one relationships can be identifier components", "")
	}

	if !rel.IsOwningSide() {
		if rel.JoinTable != nil {
			return fail("inverse side cannot declare a join table", "declare the join table on the owning side")
		}
		return nil
	}

	if rel.IsToOne() {
		if rel.JoinTable != nil {
			return fail("join table is only valid on many_to_many", "")
		}
		return validateJoinColumns(fail, "join column", rel.JoinColumns)
	}

	if rel.JoinTable != nil {
		if err := validateJoinColumns(fail, "join table column", rel.JoinTable.JoinColumns); err != nil {
			return err
		}
		if err := validateJoinColumns(fail, "inverse join table column", rel.JoinTable.InverseJoinColumns); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDeclaredJoinColumns rejects top-level join columns written on a
// relationship that cannot own them: inverse sides and many-to-many. The add
// operations silently drop such columns, so a mapping document has to be
// checked before its relationships are added.
func ValidateDeclaredJoinColumns(resource *ResourceSchema, rel *Relationship) error {
	if len(rel.JoinColumns) == 0 {
		return nil
	}
	if !rel.IsOwningSide() {
		return &ValidationError{
			Resource: resource.Name,
			Field:    rel.FieldName,
			Message:  "inverse side cannot declare join columns",
			Hint:     "declare join columns on the owning side",
		}
	}
	if !rel.IsToOne() {
		return &ValidationError{
			Resource: resource.Name,
			Field:    rel.FieldName,
			Message:  "many_to_many declares join columns on its join table",
			Hint:     "move join_columns under join_table",
		}
	}
	return nil
}

func validateJoinColumns(fail func(msg, hint string) error, what string, cols []JoinColumn) error {
	seen := make(map[string]bool, len(cols))
	for i, col := range cols {
		if col.Name == "" {
			return fail(fmt.Sprintf("%s %d has no name", what, i), "")
		}
		if seen[col.Name] {
			return fail(fmt.Sprintf("duplicate %s %q", what, col.Name), "")
		}
		seen[col.Name] = true
	}
	return nil
}

// SchemaValidator validates resource schemas
type SchemaValidator struct {
	errors []*ValidationError
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{
		errors: make([]*ValidationError, 0),
	}
}

// ValidateStructural validates a single resource schema without cross-resource checks
// This is used during loading to allow forward references
func (v *SchemaValidator) ValidateStructural(schema *ResourceSchema) error {
	v.errors = make([]*ValidationError, 0)

	if schema.Name == "" {
		return &ValidationError{Message: "resource has no name"}
	}

	v.validateIdentifier(schema)
	v.validateFields(schema)

	if len(v.errors) > 0 {
		var errMsgs []string
		for _, err := range v.errors {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("schema validation failed with %d errors:\n%s",
			len(v.errors), strings.Join(errMsgs, "\n"))
	}

	return nil
}

// Errors returns the errors collected by the last validation
func (v *SchemaValidator) Errors() []*ValidationError {
	return v.errors
}

func (v *SchemaValidator) validateIdentifier(schema *ResourceSchema) {
	if len(schema.Identifier) == 0 {
		v.errors = append(v.errors, &ValidationError{
			Resource: schema.Name,
			Message:  "resource has no identifier",
			Hint:     "list the identifier fields under identifier",
		})
		return
	}

	seen := make(map[string]bool, len(schema.Identifier))
	for _, id := range schema.Identifier {
		if seen[id] {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    id,
				Message:  "identifier component listed twice",
			})
			continue
		}
		seen[id] = true

		if schema.HasField(id) {
			continue
		}
		rel, ok := schema.Relationships.Get(id)
		if !ok {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    id,
				Message:  "identifier component is neither a field nor a relationship",
			})
			continue
		}
		if !rel.Id {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    id,
				Message:  "relationship used as identifier must be marked id",
			})
		}
	}
}

func (v *SchemaValidator) validateFields(schema *ResourceSchema) {
	for name, field := range schema.Fields {
		if field.Name != name {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  fmt.Sprintf("field registered under %q but named %q", name, field.Name),
			})
		}
		if field.Length != nil && *field.Length <= 0 {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  "string length must be positive",
			})
		}
	}
}
