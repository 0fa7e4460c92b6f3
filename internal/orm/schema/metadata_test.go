package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/retarget/internal/orm/mapping"
)

func newOrder() *ResourceSchema {
	r := NewResourceSchema(`App\Entity\Order`)
	r.AddField(&Field{Name: "id", Type: TypeUUID})
	r.Identifier = []string{"id"}
	return r
}

func TestNewResourceSchema(t *testing.T) {
	r := newOrder()
	assert.Equal(t, "order", r.TableName)
	assert.Equal(t, 0, r.Relationships.Len())
	assert.False(t, r.HasCompositeIdentifier())
}

func TestRelationshipSet(t *testing.T) {
	set := NewRelationshipSet()
	set.put(&Relationship{FieldName: "a"})
	set.put(&Relationship{FieldName: "b"})
	set.put(&Relationship{FieldName: "c"})

	snapshot := set.Snapshot()
	assert.True(t, set.remove("a"))
	assert.False(t, set.remove("a"))
	set.put(&Relationship{FieldName: "a"})

	assert.Equal(t, []string{"b", "c", "a"}, set.Names())
	assert.Len(t, snapshot, 3, "snapshot is detached from later changes")
	assert.Equal(t, "a", snapshot[0].FieldName)

	names := set.Names()
	names[0] = "mutated"
	assert.True(t, set.Has("b"))
	assert.Equal(t, []string{"b", "c", "a"}, set.Names())
}

func TestAddOperations_ForceKind(t *testing.T) {
	tests := []struct {
		add  func(*ResourceSchema, *Relationship) error
		rel  *Relationship
		want RelationType
	}{
		{(*ResourceSchema).AddManyToOne, &Relationship{FieldName: "customer", TargetResource: "Customer", Type: RelationshipManyToMany}, RelationshipManyToOne},
		{(*ResourceSchema).AddOneToOne, &Relationship{FieldName: "invoice", TargetResource: "Invoice"}, RelationshipOneToOne},
		{(*ResourceSchema).AddOneToMany, &Relationship{FieldName: "lines", TargetResource: "Line", MappedBy: "order"}, RelationshipOneToMany},
		{(*ResourceSchema).AddManyToMany, &Relationship{FieldName: "tags", TargetResource: "Tag"}, RelationshipManyToMany},
	}
	for _, tt := range tests {
		r := newOrder()
		require.NoError(t, tt.add(r, tt.rel))
		rel, err := r.GetRelationship(tt.rel.FieldName)
		require.NoError(t, err)
		assert.Equal(t, tt.want, rel.Type)
	}
}

func TestAddRelationship_Dispatch(t *testing.T) {
	r := newOrder()
	require.NoError(t, r.AddRelationship(&Relationship{
		FieldName: "lines", TargetResource: "Line", Type: RelationshipOneToMany, MappedBy: "order",
	}))
	assert.True(t, r.HasRelationship("lines"))

	err := r.AddRelationship(&Relationship{FieldName: "x", TargetResource: "X", Type: RelationType(42)})
	assert.Error(t, err)
}

func TestAddManyToOne_Defaults(t *testing.T) {
	r := newOrder()
	require.NoError(t, r.AddManyToOne(&Relationship{FieldName: "billingAddress", TargetResource: "Address"}))

	rel, err := r.GetRelationship("billingAddress")
	require.NoError(t, err)
	require.Len(t, rel.JoinColumns, 1)
	assert.Equal(t, JoinColumn{Name: "billing_address_id", ReferencedColumnName: "id"}, rel.JoinColumns[0])
	assert.Equal(t, map[string]string{"billing_address_id": "billing_address_id"}, rel.JoinColumnFieldNames)
}

func TestAddManyToOne_IdentifierIsNotNull(t *testing.T) {
	r := NewResourceSchema("OrderLine")
	require.NoError(t, r.AddManyToOne(&Relationship{
		FieldName:      "order",
		TargetResource: "Order",
		Id:             true,
		JoinColumns:    []JoinColumn{{Name: "order_id"}},
	}))

	rel, err := r.GetRelationship("order")
	require.NoError(t, err)
	assert.Equal(t, "id", rel.JoinColumns[0].ReferencedColumnName)
	require.NotNil(t, rel.JoinColumns[0].Nullable)
	assert.False(t, *rel.JoinColumns[0].Nullable)
}

func TestAddManyToMany_Defaults(t *testing.T) {
	r := newOrder()
	require.NoError(t, r.AddManyToMany(&Relationship{FieldName: "tags", TargetResource: `App\Entity\Tag`}))

	rel, err := r.GetRelationship("tags")
	require.NoError(t, err)
	require.NotNil(t, rel.JoinTable)
	assert.Equal(t, "order_tag", rel.JoinTable.Name)
	assert.Equal(t, []JoinColumn{{Name: "order_id", ReferencedColumnName: "id", OnDelete: CascadeCascade}}, rel.JoinTable.JoinColumns)
	assert.Equal(t, []JoinColumn{{Name: "tag_id", ReferencedColumnName: "id", OnDelete: CascadeCascade}}, rel.JoinTable.InverseJoinColumns)

	inverse := newOrder()
	require.NoError(t, inverse.AddManyToMany(&Relationship{FieldName: "tags", TargetResource: "Tag", MappedBy: "orders"}))
	rel, err = inverse.GetRelationship("tags")
	require.NoError(t, err)
	assert.Nil(t, rel.JoinTable)
}

func TestAddOperations_DropJoinColumnsTheyCannotOwn(t *testing.T) {
	columns := func() []JoinColumn {
		return []JoinColumn{{Name: "x_id1", ReferencedColumnName: "id1"}, {Name: "x_id2", ReferencedColumnName: "id2"}}
	}
	tests := []struct {
		name string
		rel  *Relationship
	}{
		{"one_to_many", &Relationship{FieldName: "lines", TargetResource: "Line", Type: RelationshipOneToMany, MappedBy: "order"}},
		{"inverse one_to_one", &Relationship{FieldName: "invoice", TargetResource: "Invoice", Type: RelationshipOneToOne, MappedBy: "order"}},
		{"owning many_to_many", &Relationship{FieldName: "tags", TargetResource: "Tag", Type: RelationshipManyToMany}},
		{"inverse many_to_many", &Relationship{FieldName: "tags", TargetResource: "Tag", Type: RelationshipManyToMany, MappedBy: "orders"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newOrder()
			tt.rel.JoinColumns = columns()
			require.NoError(t, r.AddRelationship(tt.rel))

			rel, err := r.GetRelationship(tt.rel.FieldName)
			require.NoError(t, err)
			assert.Empty(t, rel.JoinColumns)
			assert.Empty(t, rel.JoinColumnFieldNames)
		})
	}

	r := newOrder()
	require.NoError(t, r.AddManyToOne(&Relationship{FieldName: "customer", TargetResource: "Customer", JoinColumns: columns()}))
	rel, err := r.GetRelationship("customer")
	require.NoError(t, err)
	assert.Len(t, rel.JoinColumns, 2)
}

func TestAddRelationship_Duplicate(t *testing.T) {
	r := newOrder()
	require.NoError(t, r.AddManyToOne(&Relationship{FieldName: "customer", TargetResource: "Customer"}))

	err := r.AddManyToOne(&Relationship{FieldName: "customer", TargetResource: "Customer"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "customer", verr.Field)
}

func TestRemoveRelationship(t *testing.T) {
	r := newOrder()
	require.NoError(t, r.AddManyToOne(&Relationship{FieldName: "customer", TargetResource: "Customer"}))

	assert.True(t, r.RemoveRelationship("customer"))
	assert.False(t, r.RemoveRelationship("customer"))
	_, err := r.GetRelationship("customer")
	assert.Error(t, err)
}

func TestIdentifierColumns(t *testing.T) {
	r := NewResourceSchema("OrderLine")
	r.AddField(&Field{Name: "lineNo", Type: TypeInt})
	require.NoError(t, r.AddManyToOne(&Relationship{FieldName: "order", TargetResource: "Order", Id: true}))
	r.Identifier = []string{"order", "lineNo"}

	cols, err := r.IdentifierColumns()
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id", "line_no"}, cols)
	assert.True(t, r.HasCompositeIdentifier())
	assert.True(t, r.IsRelationshipComponent("order"))
	assert.False(t, r.IsRelationshipComponent("lineNo"))

	ids := r.GetIdentifierComponents()
	ids[0] = "mutated"
	assert.Equal(t, "order", r.Identifier[0])

	r.Identifier = []string{"missing"}
	_, err = r.IdentifierColumns()
	assert.Error(t, err)
}

func TestRelationshipValue_RoundTrip(t *testing.T) {
	notNull := false
	rel := &Relationship{
		FieldName:      "customer",
		TargetResource: "Customer",
		Type:           RelationshipManyToOne,
		JoinColumns: []JoinColumn{
			{Name: "customer_region", ReferencedColumnName: "region", Nullable: &notNull, OnDelete: CascadeCascade},
			{Name: "customer_number", ReferencedColumnName: "number", Unique: true},
		},
		InversedBy: "invoices",
		Cascade:    []string{"persist", "remove"},
		Fetch:      "eager",
		OnUpdate:   CascadeRestrict,
	}

	v := rel.ToValue()
	assert.False(t, v.Has(KeyMappedBy), "unset attributes are omitted")
	assert.False(t, v.Has(KeyOrphanRemoval))
	assert.Equal(t, "many_to_one", v.Get(KeyType).String())

	decoded, err := RelationshipFromValue(v)
	require.NoError(t, err)
	assert.Equal(t, rel, decoded)
}

func TestRelationshipValue_JoinTable(t *testing.T) {
	r := newOrder()
	require.NoError(t, r.AddManyToMany(&Relationship{FieldName: "tags", TargetResource: "Tag"}))
	rel, err := r.GetRelationship("tags")
	require.NoError(t, err)

	decoded, err := RelationshipFromValue(rel.ToValue())
	require.NoError(t, err)
	assert.Equal(t, rel.JoinTable, decoded.JoinTable)
}

func TestRelationshipFromValue_Errors(t *testing.T) {
	tests := []struct {
		name  string
		value map[string]interface{}
	}{
		{"bad type", map[string]interface{}{"type": "belongs_to"}},
		{"bad bool", map[string]interface{}{"id": "maybe"}},
		{"bad on_delete", map[string]interface{}{"on_delete": "explode"}},
		{"join columns not a sequence", map[string]interface{}{"join_columns": "customer_id"}},
		{"join column not a mapping", map[string]interface{}{"join_columns": []interface{}{"customer_id"}}},
		{"join table not a mapping", map[string]interface{}{"join_table": []interface{}{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RelationshipFromValue(mapping.FromAny(tt.value))
			assert.Error(t, err)
		})
	}

	_, err := RelationshipFromValue(mapping.Scalar("customer"))
	assert.Error(t, err)
}
