package schema

import (
	"fmt"

	"github.com/conduit-lang/retarget/internal/orm/mapping"
)

// Attribute keys of the value form of a relationship
const (
	KeyFieldName     = "field_name"
	KeyTarget        = "target"
	KeyType          = "type"
	KeyJoinColumns   = "join_columns"
	KeyJoinTable     = "join_table"
	KeyMappedBy      = "mapped_by"
	KeyInversedBy    = "inversed_by"
	KeyCascade       = "cascade"
	KeyFetch         = "fetch"
	KeyOrphanRemoval = "orphan_removal"
	KeyOrderBy       = "order_by"
	KeyNullable      = "nullable"
	KeyOnDelete      = "on_delete"
	KeyOnUpdate      = "on_update"
	KeyID            = "id"

	KeyName                 = "name"
	KeyReferencedColumnName = "referenced_column_name"
	KeyUnique               = "unique"
	KeyInverseJoinColumns   = "inverse_join_columns"
)

// ToValue renders the relationship as a mapping value. Unset optional
// attributes are left out so that merging an override only touches what the
// override names.
func (r *Relationship) ToValue() mapping.Value {
	v := mapping.EmptyMapping()
	v.Set(KeyFieldName, mapping.Scalar(r.FieldName))
	v.Set(KeyTarget, mapping.Scalar(r.TargetResource))
	v.Set(KeyType, mapping.Scalar(r.Type.String()))

	if len(r.JoinColumns) > 0 {
		v.Set(KeyJoinColumns, joinColumnsToValue(r.JoinColumns))
	}
	if r.JoinTable != nil {
		jt := mapping.EmptyMapping()
		jt.Set(KeyName, mapping.Scalar(r.JoinTable.Name))
		if len(r.JoinTable.JoinColumns) > 0 {
			jt.Set(KeyJoinColumns, joinColumnsToValue(r.JoinTable.JoinColumns))
		}
		if len(r.JoinTable.InverseJoinColumns) > 0 {
			jt.Set(KeyInverseJoinColumns, joinColumnsToValue(r.JoinTable.InverseJoinColumns))
		}
		v.Set(KeyJoinTable, jt)
	}
	if r.MappedBy != "" {
		v.Set(KeyMappedBy, mapping.Scalar(r.MappedBy))
	}
	if r.InversedBy != "" {
		v.Set(KeyInversedBy, mapping.Scalar(r.InversedBy))
	}
	if len(r.Cascade) > 0 {
		v.Set(KeyCascade, mapping.FromAny(r.Cascade))
	}
	if r.Fetch != "" {
		v.Set(KeyFetch, mapping.Scalar(r.Fetch))
	}
	if r.OrphanRemoval {
		v.Set(KeyOrphanRemoval, mapping.Scalar(true))
	}
	if len(r.OrderBy) > 0 {
		v.Set(KeyOrderBy, mapping.FromAny(r.OrderBy))
	}
	if r.Nullable {
		v.Set(KeyNullable, mapping.Scalar(true))
	}
	if r.OnDelete != CascadeUnset {
		v.Set(KeyOnDelete, mapping.Scalar(r.OnDelete.String()))
	}
	if r.OnUpdate != CascadeUnset {
		v.Set(KeyOnUpdate, mapping.Scalar(r.OnUpdate.String()))
	}
	if r.Id {
		v.Set(KeyID, mapping.Scalar(true))
	}
	return v
}

func joinColumnsToValue(cols []JoinColumn) mapping.Value {
	var seq mapping.Value
	for _, col := range cols {
		c := mapping.EmptyMapping()
		c.Set(KeyName, mapping.Scalar(col.Name))
		c.Set(KeyReferencedColumnName, mapping.Scalar(col.ReferencedColumnName))
		if col.Nullable != nil {
			c.Set(KeyNullable, mapping.Scalar(*col.Nullable))
		}
		if col.Unique {
			c.Set(KeyUnique, mapping.Scalar(true))
		}
		if col.OnDelete != CascadeUnset {
			c.Set(KeyOnDelete, mapping.Scalar(col.OnDelete.String()))
		}
		seq.Append(c)
	}
	return seq
}

// RelationshipFromValue decodes the mapping form of a relationship. The
// relationship type may be absent, in which case the caller is expected to
// add it through a kind-specific operation that sets it.
func RelationshipFromValue(v mapping.Value) (*Relationship, error) {
	if v.Kind() != mapping.KindMapping {
		return nil, fmt.Errorf("relationship must be a mapping, got %s", v.Kind())
	}

	rel := &Relationship{
		FieldName:      v.Get(KeyFieldName).String(),
		TargetResource: v.Get(KeyTarget).String(),
		MappedBy:       v.Get(KeyMappedBy).String(),
		InversedBy:     v.Get(KeyInversedBy).String(),
		Fetch:          v.Get(KeyFetch).String(),
		Cascade:        v.Get(KeyCascade).Strings(),
		OrderBy:        v.Get(KeyOrderBy).Strings(),
	}

	if t := v.Get(KeyType); !t.IsNull() {
		relType, err := ParseRelationType(t.String())
		if err != nil {
			return nil, err
		}
		rel.Type = relType
	}

	var err error
	if rel.OrphanRemoval, err = boolAttr(v, KeyOrphanRemoval); err != nil {
		return nil, err
	}
	if rel.Nullable, err = boolAttr(v, KeyNullable); err != nil {
		return nil, err
	}
	if rel.Id, err = boolAttr(v, KeyID); err != nil {
		return nil, err
	}
	if rel.OnDelete, err = ParseCascadeAction(v.Get(KeyOnDelete).String()); err != nil {
		return nil, err
	}
	if rel.OnUpdate, err = ParseCascadeAction(v.Get(KeyOnUpdate).String()); err != nil {
		return nil, err
	}

	if rel.JoinColumns, err = joinColumnsFromValue(v.Get(KeyJoinColumns)); err != nil {
		return nil, fmt.Errorf("%s: %w", KeyJoinColumns, err)
	}

	if jt := v.Get(KeyJoinTable); !jt.IsNull() {
		if jt.Kind() != mapping.KindMapping {
			return nil, fmt.Errorf("%s must be a mapping, got %s", KeyJoinTable, jt.Kind())
		}
		rel.JoinTable = &JoinTable{Name: jt.Get(KeyName).String()}
		if rel.JoinTable.JoinColumns, err = joinColumnsFromValue(jt.Get(KeyJoinColumns)); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", KeyJoinTable, KeyJoinColumns, err)
		}
		if rel.JoinTable.InverseJoinColumns, err = joinColumnsFromValue(jt.Get(KeyInverseJoinColumns)); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", KeyJoinTable, KeyInverseJoinColumns, err)
		}
	}

	return rel, nil
}

func joinColumnsFromValue(v mapping.Value) ([]JoinColumn, error) {
	if v.IsNull() {
		return nil, nil
	}
	if v.Kind() != mapping.KindSequence {
		return nil, fmt.Errorf("expected a sequence, got %s", v.Kind())
	}

	cols := make([]JoinColumn, 0, v.Len())
	for i, item := range v.Items() {
		if item.Kind() != mapping.KindMapping {
			return nil, fmt.Errorf("entry %d: expected a mapping, got %s", i, item.Kind())
		}
		col := JoinColumn{
			Name:                 item.Get(KeyName).String(),
			ReferencedColumnName: item.Get(KeyReferencedColumnName).String(),
		}
		if n := item.Get(KeyNullable); !n.IsNull() {
			b, ok := n.Bool()
			if !ok {
				return nil, fmt.Errorf("entry %d: %s must be a boolean", i, KeyNullable)
			}
			col.Nullable = &b
		}
		unique, err := boolAttr(item, KeyUnique)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		col.Unique = unique
		if col.OnDelete, err = ParseCascadeAction(item.Get(KeyOnDelete).String()); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func boolAttr(v mapping.Value, key string) (bool, error) {
	item := v.Get(key)
	if item.IsNull() {
		return false, nil
	}
	b, ok := item.Bool()
	if !ok {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, item.String())
	}
	return b, nil
}
