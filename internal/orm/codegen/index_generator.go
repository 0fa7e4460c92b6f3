package codegen

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/retarget/internal/orm/schema"
)

// IndexGenerator generates CREATE INDEX statements
type IndexGenerator struct{}

// NewIndexGenerator creates a new index generator
func NewIndexGenerator() *IndexGenerator {
	return &IndexGenerator{}
}

// GenerateIndexes indexes the join columns of every owning to-one
// relationship that is not already covered by the primary key or a unique
// constraint
func (g *IndexGenerator) GenerateIndexes(resource *schema.ResourceSchema) []string {
	var indexes []string
	for _, rel := range resource.Relationships.Snapshot() {
		if !rel.IsOwningSide() || !rel.IsToOne() || rel.Id {
			continue
		}
		if rel.Type == schema.RelationshipOneToOne {
			continue
		}

		columns := make([]string, len(rel.JoinColumns))
		unique := false
		for i, jc := range rel.JoinColumns {
			columns[i] = jc.Name
			unique = unique || jc.Unique
		}
		if unique || len(columns) == 0 {
			continue
		}

		indexName := fmt.Sprintf("idx_%s_%s", resource.TableName, strings.Join(columns, "_"))
		indexes = append(indexes, g.GenerateCompositeIndex(resource.TableName, indexName, columns, false))
	}
	return indexes
}

// GenerateCompositeIndex generates an index on multiple columns
func (g *IndexGenerator) GenerateCompositeIndex(tableName string, indexName string, columns []string, unique bool) string {
	if unique {
		return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s);",
			QuoteIdentifier(indexName), QuoteIdentifier(tableName), quoteAll(columns))
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s);",
		QuoteIdentifier(indexName), QuoteIdentifier(tableName), quoteAll(columns))
}
