package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/retarget/internal/orm/schema"
)

// maxReferenceDepth bounds how many foreign keys are followed when typing a
// join column
const maxReferenceDepth = 8

// ResourceLookup finds loaded metadata by resource name. *schema.Registry
// satisfies it.
type ResourceLookup interface {
	Get(name string) (*schema.ResourceSchema, bool)
}

// DDLGenerator generates DDL statements from resource metadata
type DDLGenerator struct {
	typeMapper *TypeMapper
	indexes    *IndexGenerator
	resources  ResourceLookup
}

// NewDDLGenerator creates a DDL generator that resolves relationship targets
// through resources
func NewDDLGenerator(resources ResourceLookup) *DDLGenerator {
	return &DDLGenerator{
		typeMapper: NewTypeMapper(),
		indexes:    NewIndexGenerator(),
		resources:  resources,
	}
}

type column struct {
	name     string
	sqlType  string
	nullable bool
}

// GenerateCreateTable generates a CREATE TABLE statement for a resource. The
// columns are the scalar fields followed by the join columns of every owning
// to-one relationship, each join column taking the type of the column it
// references on the target.
func (g *DDLGenerator) GenerateCreateTable(resource *schema.ResourceSchema) (string, error) {
	if resource == nil {
		return "", fmt.Errorf("resource cannot be nil")
	}

	columns, err := g.resourceColumns(resource)
	if err != nil {
		return "", err
	}

	defs := make([]string, 0, len(columns)+4)
	for _, col := range columns {
		defs = append(defs, columnDefinition(col))
	}

	primaryKey, err := resource.IdentifierColumns()
	if err != nil {
		return "", err
	}
	if len(primaryKey) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", quoteAll(primaryKey)))
	}

	for _, rel := range resource.Relationships.Snapshot() {
		if !rel.IsOwningSide() || !rel.IsToOne() {
			continue
		}
		constraints, err := g.foreignKey(resource, rel)
		if err != nil {
			return "", err
		}
		defs = append(defs, constraints...)
	}

	return renderCreateTable(resource.TableName, defs), nil
}

// GenerateJoinTables generates the link tables of the resource's owning
// many-to-many relationships
func (g *DDLGenerator) GenerateJoinTables(resource *schema.ResourceSchema) ([]string, error) {
	var statements []string
	for _, rel := range resource.Relationships.Snapshot() {
		if rel.Type != schema.RelationshipManyToMany || !rel.IsOwningSide() {
			continue
		}
		stmt, err := g.generateJoinTable(resource, rel)
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

// GenerateSchema generates the CREATE TABLE statements of every resource in
// the registry, referenced tables first, followed by all link tables and
// then the foreign key indexes
func (g *DDLGenerator) GenerateSchema(registry *schema.Registry) ([]string, error) {
	order, err := registry.GetDependencyOrder()
	if err != nil {
		return nil, err
	}

	var tables, links, indexes []string
	for _, name := range order {
		resource, _ := registry.Get(name)
		stmt, err := g.GenerateCreateTable(resource)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", name, err)
		}
		tables = append(tables, stmt)

		joinTables, err := g.GenerateJoinTables(resource)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", name, err)
		}
		links = append(links, joinTables...)
		indexes = append(indexes, g.indexes.GenerateIndexes(resource)...)
	}
	statements := append(tables, links...)
	return append(statements, indexes...), nil
}

func (g *DDLGenerator) resourceColumns(resource *schema.ResourceSchema) ([]column, error) {
	var columns []column
	seen := make(map[string]bool)

	for _, field := range orderFields(resource) {
		sqlType, err := g.typeMapper.MapType(field)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		name := field.ColumnName()
		seen[name] = true
		columns = append(columns, column{name: name, sqlType: sqlType, nullable: field.Nullable})
	}

	for _, rel := range resource.Relationships.Snapshot() {
		if !rel.IsOwningSide() || !rel.IsToOne() {
			continue
		}
		target, err := g.target(resource, rel)
		if err != nil {
			return nil, err
		}
		for _, jc := range rel.JoinColumns {
			// A join column may share its column with a scalar field
			if seen[jc.Name] {
				continue
			}
			sqlType, err := g.columnType(target, jc.ReferencedColumnName, 0)
			if err != nil {
				return nil, fmt.Errorf("relationship %s: join column %s: %w", rel.FieldName, jc.Name, err)
			}
			nullable := !rel.Id
			if jc.Nullable != nil {
				nullable = *jc.Nullable
			}
			seen[jc.Name] = true
			columns = append(columns, column{name: jc.Name, sqlType: sqlType, nullable: nullable})
		}
	}
	return columns, nil
}

func (g *DDLGenerator) foreignKey(resource *schema.ResourceSchema, rel *schema.Relationship) ([]string, error) {
	target, err := g.target(resource, rel)
	if err != nil {
		return nil, err
	}

	local := make([]string, len(rel.JoinColumns))
	referenced := make([]string, len(rel.JoinColumns))
	onDelete := rel.OnDelete
	unique := rel.Type == schema.RelationshipOneToOne && !rel.Id
	for i, jc := range rel.JoinColumns {
		local[i] = jc.Name
		referenced[i] = jc.ReferencedColumnName
		if jc.OnDelete != schema.CascadeUnset {
			onDelete = jc.OnDelete
		}
		unique = unique || jc.Unique
	}

	var constraints []string
	if unique {
		constraints = append(constraints, fmt.Sprintf("UNIQUE (%s)", quoteAll(local)))
	}
	fk := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
		quoteAll(local), QuoteIdentifier(target.TableName), quoteAll(referenced))
	if onDelete != schema.CascadeUnset {
		fk += " ON DELETE " + onDelete.SQL()
	}
	if rel.OnUpdate != schema.CascadeUnset {
		fk += " ON UPDATE " + rel.OnUpdate.SQL()
	}
	return append(constraints, fk), nil
}

func (g *DDLGenerator) generateJoinTable(resource *schema.ResourceSchema, rel *schema.Relationship) (string, error) {
	target, err := g.target(resource, rel)
	if err != nil {
		return "", err
	}
	jt := rel.JoinTable
	if jt == nil {
		return "", fmt.Errorf("relationship %s has no join table", rel.FieldName)
	}

	var defs, primaryKey, fks []string
	sides := []struct {
		owner   *schema.ResourceSchema
		columns []schema.JoinColumn
	}{
		{resource, jt.JoinColumns},
		{target, jt.InverseJoinColumns},
	}
	for _, side := range sides {
		local := make([]string, len(side.columns))
		referenced := make([]string, len(side.columns))
		var onDelete schema.CascadeAction
		for i, jc := range side.columns {
			sqlType, err := g.columnType(side.owner, jc.ReferencedColumnName, 0)
			if err != nil {
				return "", fmt.Errorf("join table %s: column %s: %w", jt.Name, jc.Name, err)
			}
			defs = append(defs, columnDefinition(column{name: jc.Name, sqlType: sqlType}))
			local[i] = jc.Name
			referenced[i] = jc.ReferencedColumnName
			if jc.OnDelete != schema.CascadeUnset {
				onDelete = jc.OnDelete
			}
		}
		primaryKey = append(primaryKey, local...)
		fk := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteAll(local), QuoteIdentifier(side.owner.TableName), quoteAll(referenced))
		if onDelete != schema.CascadeUnset {
			fk += " ON DELETE " + onDelete.SQL()
		}
		fks = append(fks, fk)
	}

	defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", quoteAll(primaryKey)))
	defs = append(defs, fks...)
	return renderCreateTable(jt.Name, defs), nil
}

func (g *DDLGenerator) target(resource *schema.ResourceSchema, rel *schema.Relationship) (*schema.ResourceSchema, error) {
	if rel.TargetResource == resource.Name {
		return resource, nil
	}
	target, ok := g.resources.Get(rel.TargetResource)
	if !ok {
		return nil, fmt.Errorf("relationship %s targets %s, which is not loaded", rel.FieldName, rel.TargetResource)
	}
	return target, nil
}

// columnType returns the SQL type of a column of resource. When the column
// is itself a join column, the foreign key is followed to the column it
// references.
func (g *DDLGenerator) columnType(resource *schema.ResourceSchema, name string, depth int) (string, error) {
	if depth > maxReferenceDepth {
		return "", fmt.Errorf("column %s.%s: too many nested references", resource.TableName, name)
	}

	for _, field := range resource.Fields {
		if field.ColumnName() == name {
			return g.typeMapper.MapType(field)
		}
	}
	for _, rel := range resource.Relationships.Snapshot() {
		if !rel.IsOwningSide() || !rel.IsToOne() {
			continue
		}
		for _, jc := range rel.JoinColumns {
			if jc.Name != name {
				continue
			}
			target, err := g.target(resource, rel)
			if err != nil {
				return "", err
			}
			return g.columnType(target, jc.ReferencedColumnName, depth+1)
		}
	}
	return "", fmt.Errorf("table %s has no column %s", resource.TableName, name)
}

// orderFields returns identifier fields in identifier order, then the
// remaining fields sorted by name
func orderFields(resource *schema.ResourceSchema) []*schema.Field {
	fields := make([]*schema.Field, 0, len(resource.Fields))
	placed := make(map[string]bool)
	for _, id := range resource.Identifier {
		if field, ok := resource.Fields[id]; ok && !placed[id] {
			fields = append(fields, field)
			placed[id] = true
		}
	}

	rest := make([]*schema.Field, 0, len(resource.Fields))
	for name, field := range resource.Fields {
		if !placed[name] {
			rest = append(rest, field)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		return rest[i].Name < rest[j].Name
	})
	return append(fields, rest...)
}

func columnDefinition(col column) string {
	def := QuoteIdentifier(col.name) + " " + col.sqlType
	if !col.nullable {
		def += " NOT NULL"
	}
	return def
}

func renderCreateTable(table string, defs []string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", QuoteIdentifier(table)))
	for i, def := range defs {
		b.WriteString("  ")
		b.WriteString(def)
		if i < len(defs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")
	return b.String()
}
