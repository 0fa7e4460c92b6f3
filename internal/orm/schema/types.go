// Package schema provides the metadata model for persistable resources: fields,
// identifiers and relationship definitions, together with the per-kind
// operations used to map relationships onto a resource.
package schema

import (
	"fmt"
	"strings"
)

// PrimitiveType represents the column types a field can map to
type PrimitiveType int

const (
	TypeString PrimitiveType = iota
	TypeText
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDecimal
	TypeBool
	TypeTimestamp
	TypeDate
	TypeUUID
	TypeJSON
)

// String returns the string representation of the primitive type
func (p PrimitiveType) String() string {
	switch p {
	case TypeString:
		return "string"
	case TypeText:
		return "text"
	case TypeInt:
		return "int"
	case TypeBigInt:
		return "bigint"
	case TypeFloat:
		return "float"
	case TypeDecimal:
		return "decimal"
	case TypeBool:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	case TypeDate:
		return "date"
	case TypeUUID:
		return "uuid"
	case TypeJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParsePrimitiveType converts a string to a PrimitiveType
func ParsePrimitiveType(s string) (PrimitiveType, error) {
	switch s {
	case "string":
		return TypeString, nil
	case "text":
		return TypeText, nil
	case "int", "integer":
		return TypeInt, nil
	case "bigint":
		return TypeBigInt, nil
	case "float":
		return TypeFloat, nil
	case "decimal":
		return TypeDecimal, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "timestamp", "datetime":
		return TypeTimestamp, nil
	case "date":
		return TypeDate, nil
	case "uuid":
		return TypeUUID, nil
	case "json":
		return TypeJSON, nil
	default:
		return 0, fmt.Errorf("unknown primitive type: %s", s)
	}
}

// Field represents a scalar field in a resource schema
type Field struct {
	Name     string
	Type     PrimitiveType
	Nullable bool
	Length   *int   // For string(N)
	Column   string // Defaults to the snake_case field name
}

// ColumnName returns the column the field is stored in
func (f *Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return toSnakeCase(f.Name)
}

// RelationType represents the kind of a relationship
type RelationType int

const (
	RelationshipManyToOne RelationType = iota
	RelationshipOneToOne
	RelationshipOneToMany
	RelationshipManyToMany
)

// String returns the string representation of the relationship type
func (r RelationType) String() string {
	switch r {
	case RelationshipManyToOne:
		return "many_to_one"
	case RelationshipOneToOne:
		return "one_to_one"
	case RelationshipOneToMany:
		return "one_to_many"
	case RelationshipManyToMany:
		return "many_to_many"
	default:
		return "unknown"
	}
}

// ParseRelationType converts a string to a RelationType
func ParseRelationType(s string) (RelationType, error) {
	switch s {
	case "many_to_one":
		return RelationshipManyToOne, nil
	case "one_to_one":
		return RelationshipOneToOne, nil
	case "one_to_many":
		return RelationshipOneToMany, nil
	case "many_to_many":
		return RelationshipManyToMany, nil
	default:
		return 0, fmt.Errorf("unknown relationship type: %s", s)
	}
}

// CascadeAction represents referential actions for foreign keys
type CascadeAction int

const (
	CascadeUnset CascadeAction = iota
	CascadeRestrict
	CascadeCascade
	CascadeSetNull
	CascadeNoAction
)

// String returns the string representation of the cascade action
func (c CascadeAction) String() string {
	switch c {
	case CascadeUnset:
		return ""
	case CascadeRestrict:
		return "restrict"
	case CascadeCascade:
		return "cascade"
	case CascadeSetNull:
		return "set_null"
	case CascadeNoAction:
		return "no_action"
	default:
		return "unknown"
	}
}

// SQL returns the referential action as it appears in DDL
func (c CascadeAction) SQL() string {
	return strings.ToUpper(strings.ReplaceAll(c.String(), "_", " "))
}

// ParseCascadeAction converts a string to a CascadeAction
func ParseCascadeAction(s string) (CascadeAction, error) {
	switch s {
	case "":
		return CascadeUnset, nil
	case "restrict":
		return CascadeRestrict, nil
	case "cascade":
		return CascadeCascade, nil
	case "set_null":
		return CascadeSetNull, nil
	case "no_action":
		return CascadeNoAction, nil
	default:
		return 0, fmt.Errorf("unknown cascade action: %s", s)
	}
}

// JoinColumn correlates a local column with a column of the target resource
type JoinColumn struct {
	Name                 string
	ReferencedColumnName string
	Nullable             *bool
	Unique               bool
	OnDelete             CascadeAction
}

// JoinTable describes the link table of a many-to-many relationship
type JoinTable struct {
	Name               string
	JoinColumns        []JoinColumn
	InverseJoinColumns []JoinColumn
}

// Relationship is the definition of one association between two resources
type Relationship struct {
	FieldName      string
	TargetResource string
	Type           RelationType

	JoinColumns []JoinColumn
	JoinTable   *JoinTable

	// Bidirectional configuration
	MappedBy   string
	InversedBy string

	Cascade       []string
	Fetch         string
	OrphanRemoval bool
	OrderBy       []string
	Nullable      bool
	OnDelete      CascadeAction
	OnUpdate      CascadeAction

	// Id marks the relationship as an identifier component of its owner
	Id bool

	// JoinColumnFieldNames is filled in when the relationship is added to a
	// resource: join column name -> local column name
	JoinColumnFieldNames map[string]string
}

// IsOwningSide reports whether the relationship holds the foreign key
func (r *Relationship) IsOwningSide() bool {
	switch r.Type {
	case RelationshipManyToOne:
		return true
	case RelationshipOneToMany:
		return false
	default:
		return r.MappedBy == ""
	}
}

// IsToOne reports whether the relationship points at a single record
func (r *Relationship) IsToOne() bool {
	return r.Type == RelationshipManyToOne || r.Type == RelationshipOneToOne
}

// Clone returns a deep copy of the relationship
func (r *Relationship) Clone() *Relationship {
	c := *r
	c.JoinColumns = cloneJoinColumns(r.JoinColumns)
	if r.JoinTable != nil {
		jt := *r.JoinTable
		jt.JoinColumns = cloneJoinColumns(r.JoinTable.JoinColumns)
		jt.InverseJoinColumns = cloneJoinColumns(r.JoinTable.InverseJoinColumns)
		c.JoinTable = &jt
	}
	if r.Cascade != nil {
		c.Cascade = append([]string(nil), r.Cascade...)
	}
	if r.OrderBy != nil {
		c.OrderBy = append([]string(nil), r.OrderBy...)
	}
	if r.JoinColumnFieldNames != nil {
		c.JoinColumnFieldNames = make(map[string]string, len(r.JoinColumnFieldNames))
		for k, v := range r.JoinColumnFieldNames {
			c.JoinColumnFieldNames[k] = v
		}
	}
	return &c
}

func cloneJoinColumns(cols []JoinColumn) []JoinColumn {
	if cols == nil {
		return nil
	}
	out := make([]JoinColumn, len(cols))
	for i, col := range cols {
		out[i] = col
		if col.Nullable != nil {
			n := *col.Nullable
			out[i].Nullable = &n
		}
	}
	return out
}

// ShortName returns the last segment of a namespaced type name
func ShortName(typeName string) string {
	if i := strings.LastIndexAny(typeName, `\./`); i >= 0 {
		return typeName[i+1:]
	}
	return typeName
}

// toSnakeCase converts a string to snake_case
func toSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			// Break on a camelCase boundary or at the end of an acronym
			// ("HTTPServer" -> "http_server")
			if prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9' {
				result = append(result, '_')
			} else if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' && prev != '_' {
				result = append(result, '_')
			}
		}
		if r >= 'A' && r <= 'Z' {
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}
	return string(result)
}

// ToSnakeCase converts a Go-style or namespaced name to snake_case
func ToSnakeCase(s string) string {
	return toSnakeCase(ShortName(s))
}
