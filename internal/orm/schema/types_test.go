package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrimitiveType(t *testing.T) {
	tests := map[string]PrimitiveType{
		"string":   TypeString,
		"integer":  TypeInt,
		"boolean":  TypeBool,
		"datetime": TypeTimestamp,
		"uuid":     TypeUUID,
		"json":     TypeJSON,
	}
	for input, want := range tests {
		got, err := ParsePrimitiveType(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParsePrimitiveType("blob")
	assert.Error(t, err)
}

func TestRelationType(t *testing.T) {
	for _, rt := range []RelationType{RelationshipManyToOne, RelationshipOneToOne, RelationshipOneToMany, RelationshipManyToMany} {
		parsed, err := ParseRelationType(rt.String())
		require.NoError(t, err)
		assert.Equal(t, rt, parsed)
	}

	_, err := ParseRelationType("belongs_to")
	assert.Error(t, err)
}

func TestCascadeAction(t *testing.T) {
	assert.Equal(t, "SET NULL", CascadeSetNull.SQL())
	assert.Equal(t, "NO ACTION", CascadeNoAction.SQL())
	assert.Equal(t, "", CascadeUnset.String())

	action, err := ParseCascadeAction("cascade")
	require.NoError(t, err)
	assert.Equal(t, CascadeCascade, action)

	_, err = ParseCascadeAction("delete")
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Customer", ShortName(`App\Entity\Customer`))
	assert.Equal(t, "Customer", ShortName("Customer"))
	assert.Equal(t, "order_line", ToSnakeCase(`App\Entity\OrderLine`))
	assert.Equal(t, "http_server", ToSnakeCase("HTTPServer"))
	assert.Equal(t, "line2_total", ToSnakeCase("line2Total"))

	assert.Equal(t, "placed_at", (&Field{Name: "placedAt"}).ColumnName())
	assert.Equal(t, "ts", (&Field{Name: "placedAt", Column: "ts"}).ColumnName())
}

func TestRelationship_Sides(t *testing.T) {
	tests := []struct {
		rel    Relationship
		owning bool
		toOne  bool
	}{
		{Relationship{Type: RelationshipManyToOne}, true, true},
		{Relationship{Type: RelationshipOneToMany, MappedBy: "order"}, false, false},
		{Relationship{Type: RelationshipOneToOne}, true, true},
		{Relationship{Type: RelationshipOneToOne, MappedBy: "profile"}, false, true},
		{Relationship{Type: RelationshipManyToMany, InversedBy: "orders"}, true, false},
		{Relationship{Type: RelationshipManyToMany, MappedBy: "tags"}, false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.owning, tt.rel.IsOwningSide(), tt.rel.Type.String())
		assert.Equal(t, tt.toOne, tt.rel.IsToOne(), tt.rel.Type.String())
	}
}

func TestRelationship_Clone(t *testing.T) {
	notNull := false
	rel := &Relationship{
		FieldName:            "customer",
		TargetResource:       "Customer",
		JoinColumns:          []JoinColumn{{Name: "customer_id", ReferencedColumnName: "id", Nullable: &notNull}},
		JoinTable:            &JoinTable{Name: "t", JoinColumns: []JoinColumn{{Name: "a"}}},
		Cascade:              []string{"persist"},
		JoinColumnFieldNames: map[string]string{"customer_id": "customer_id"},
	}

	c := rel.Clone()
	require.Equal(t, rel, c)

	c.JoinColumns[0].Name = "changed"
	*c.JoinColumns[0].Nullable = true
	c.JoinTable.JoinColumns[0].Name = "changed"
	c.Cascade[0] = "remove"
	c.JoinColumnFieldNames["x"] = "y"

	assert.Equal(t, "customer_id", rel.JoinColumns[0].Name)
	assert.False(t, *rel.JoinColumns[0].Nullable)
	assert.Equal(t, "a", rel.JoinTable.JoinColumns[0].Name)
	assert.Equal(t, []string{"persist"}, rel.Cascade)
	assert.Len(t, rel.JoinColumnFieldNames, 1)
}
