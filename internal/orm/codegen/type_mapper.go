// Package codegen turns loaded resource metadata into SQL DDL.
// Join columns of remapped relationships are typed from the concrete target,
// so the output reflects any abstract type resolution done at load time.
package codegen

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/retarget/internal/orm/schema"
)

// TypeMapper maps field types to SQL column types
type TypeMapper struct{}

// NewTypeMapper creates a new TypeMapper
func NewTypeMapper() *TypeMapper {
	return &TypeMapper{}
}

// MapType converts a field to its column type
func (tm *TypeMapper) MapType(field *schema.Field) (string, error) {
	if field == nil {
		return "", fmt.Errorf("field cannot be nil")
	}

	switch field.Type {
	case schema.TypeString:
		if field.Length != nil {
			if *field.Length <= 0 {
				return "", fmt.Errorf("invalid string length %d", *field.Length)
			}
			return fmt.Sprintf("VARCHAR(%d)", *field.Length), nil
		}
		return "VARCHAR(255)", nil
	case schema.TypeText:
		return "TEXT", nil
	case schema.TypeInt:
		return "INTEGER", nil
	case schema.TypeBigInt:
		return "BIGINT", nil
	case schema.TypeFloat:
		return "DOUBLE PRECISION", nil
	case schema.TypeDecimal:
		return "NUMERIC", nil
	case schema.TypeBool:
		return "BOOLEAN", nil
	case schema.TypeTimestamp:
		return "TIMESTAMP WITH TIME ZONE", nil
	case schema.TypeDate:
		return "DATE", nil
	case schema.TypeUUID:
		return "UUID", nil
	case schema.TypeJSON:
		return "JSON", nil
	default:
		return "", fmt.Errorf("unsupported type: %s", field.Type)
	}
}

// QuoteIdentifier quotes a table or column name. Embedded double quotes are
// doubled.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = QuoteIdentifier(name)
	}
	return strings.Join(quoted, ", ")
}
