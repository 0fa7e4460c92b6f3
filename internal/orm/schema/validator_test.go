package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Resource: "Order", Field: "lines", Message: "bad", Hint: "fix it"}
	assert.Equal(t, "Order.lines: bad\n  hint: fix it", err.Error())
	assert.Equal(t, "bad", (&ValidationError{Message: "bad"}).Error())
}

func TestValidateRelationship(t *testing.T) {
	tests := []struct {
		name string
		rel  *Relationship
		want string
	}{
		{"no field name", &Relationship{TargetResource: "X"}, "no field name"},
		{"no target", &Relationship{FieldName: "x"}, "no target resource"},
		{"clashes with scalar", &Relationship{FieldName: "id", TargetResource: "X"}, "scalar field"},
		{"bad fetch", &Relationship{FieldName: "x", TargetResource: "X", Fetch: "sometimes"}, "invalid fetch mode"},
		{"bad cascade", &Relationship{FieldName: "x", TargetResource: "X", Cascade: []string{"all", "delete"}}, "invalid cascade option"},
		{"one_to_many without mapped_by", &Relationship{FieldName: "x", TargetResource: "X", Type: RelationshipOneToMany}, "requires mapped_by"},
		{"many_to_one inverse", &Relationship{FieldName: "x", TargetResource: "X", MappedBy: "y"}, "cannot be an inverse side"},
		{"many_to_one orphan removal", &Relationship{FieldName: "x", TargetResource: "X", OrphanRemoval: true}, "orphan_removal"},
		{"id on many_to_many", &Relationship{FieldName: "x", TargetResource: "X", Type: RelationshipManyToMany, Id: true}, "identifier components"},
		{"to-one with join table", &Relationship{FieldName: "x", TargetResource: "X", JoinTable: &JoinTable{Name: "t"}}, "only valid on many_to_many"},
		{"unnamed join column", &Relationship{FieldName: "x", TargetResource: "X", JoinColumns: []JoinColumn{{ReferencedColumnName: "id"}}}, "has no name"},
		{"duplicate join column", &Relationship{FieldName: "x", TargetResource: "X", JoinColumns: []JoinColumn{{Name: "a"}, {Name: "a"}}}, "duplicate join column"},
		{"duplicate inverse join table column", &Relationship{FieldName: "x", TargetResource: "X", Type: RelationshipManyToMany, JoinTable: &JoinTable{InverseJoinColumns: []JoinColumn{{Name: "a"}, {Name: "a"}}}}, "duplicate inverse join table column"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelationship(newOrder(), tt.rel)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected a ValidationError, got %v", err)
			assert.Contains(t, verr.Message, tt.want)
		})
	}

	valid := &Relationship{FieldName: "customer", TargetResource: "Customer", Fetch: "extra_lazy", Cascade: []string{"persist", "refresh"}}
	assert.NoError(t, ValidateRelationship(newOrder(), valid))
}

func TestValidateDeclaredJoinColumns(t *testing.T) {
	columns := []JoinColumn{{Name: "x_id"}}
	tests := []struct {
		name string
		rel  *Relationship
		want string
	}{
		{"inverse one_to_one", &Relationship{FieldName: "x", TargetResource: "X", Type: RelationshipOneToOne, MappedBy: "y", JoinColumns: columns}, "inverse side cannot declare join columns"},
		{"one_to_many", &Relationship{FieldName: "x", TargetResource: "X", Type: RelationshipOneToMany, MappedBy: "y", JoinColumns: columns}, "inverse side cannot declare join columns"},
		{"many_to_many", &Relationship{FieldName: "x", TargetResource: "X", Type: RelationshipManyToMany, JoinColumns: columns}, "join columns on its join table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDeclaredJoinColumns(newOrder(), tt.rel)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected a ValidationError, got %v", err)
			assert.Contains(t, verr.Message, tt.want)
		})
	}

	assert.NoError(t, ValidateDeclaredJoinColumns(newOrder(), &Relationship{FieldName: "x", TargetResource: "X", JoinColumns: columns}))
	assert.NoError(t, ValidateDeclaredJoinColumns(newOrder(), &Relationship{FieldName: "x", TargetResource: "X", Type: RelationshipOneToMany, MappedBy: "y"}))
}

func TestSchemaValidator_ValidateStructural(t *testing.T) {
	t.Run("valid composite identifier", func(t *testing.T) {
		r := NewResourceSchema("OrderLine")
		r.AddField(&Field{Name: "line_no", Type: TypeInt})
		require.NoError(t, r.AddManyToOne(&Relationship{FieldName: "order", TargetResource: "Order", Id: true}))
		r.Identifier = []string{"order", "line_no"}

		assert.NoError(t, NewSchemaValidator().ValidateStructural(r))
	})

	t.Run("collects every problem", func(t *testing.T) {
		length := 0
		r := NewResourceSchema("Broken")
		r.Fields["code"] = &Field{Name: "other", Type: TypeString, Length: &length}
		require.NoError(t, r.AddManyToOne(&Relationship{FieldName: "owner", TargetResource: "User"}))
		r.Identifier = []string{"owner", "missing", "owner"}

		v := NewSchemaValidator()
		err := v.ValidateStructural(r)
		require.Error(t, err)

		var messages []string
		for _, e := range v.Errors() {
			messages = append(messages, e.Message)
		}
		assert.ElementsMatch(t, []string{
			"relationship used as identifier must be marked id",
			"identifier component is neither a field nor a relationship",
			"identifier component listed twice",
			`field registered under "code" but named "other"`,
			"string length must be positive",
		}, messages)
	})

	t.Run("no identifier", func(t *testing.T) {
		err := NewSchemaValidator().ValidateStructural(NewResourceSchema("Loose"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "resource has no identifier")
	})

	t.Run("no name", func(t *testing.T) {
		assert.Error(t, NewSchemaValidator().ValidateStructural(&ResourceSchema{Relationships: NewRelationshipSet()}))
	})
}
