// Package loader reads resource mapping documents written in YAML.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/retarget/internal/orm/mapping"
	"github.com/conduit-lang/retarget/internal/orm/schema"
)

// Document is the top level of a mapping file
type Document struct {
	Resources []ResourceDocument `yaml:"resources"`
}

// ResourceDocument describes one resource
type ResourceDocument struct {
	Name          string          `yaml:"name"`
	Table         string          `yaml:"table"`
	Documentation string          `yaml:"doc"`
	Identifier    []string        `yaml:"identifier"`
	Fields        []FieldDocument `yaml:"fields"`
	Relationships []mapping.Value `yaml:"relationships"`
}

// FieldDocument describes one scalar field
type FieldDocument struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
	Length   *int   `yaml:"length"`
	Column   string `yaml:"column"`
}

// LoadFile reads and parses one mapping file
func LoadFile(path string) ([]*schema.ResourceSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping file: %w", err)
	}

	resources, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, r := range resources {
		r.FilePath = path
	}
	return resources, nil
}

// LoadFiles parses several mapping files and returns their resources in file order
func LoadFiles(paths []string) ([]*schema.ResourceSchema, error) {
	var all []*schema.ResourceSchema
	for _, path := range paths {
		resources, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, resources...)
	}
	return all, nil
}

// Parse parses mapping data. Several YAML documents may be concatenated with
// `---`. Relationships are mapped through the kind-specific add operations,
// so their defaults are applied here.
func Parse(data []byte) ([]*schema.ResourceSchema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var resources []*schema.ResourceSchema
	seen := make(map[string]bool)
	for {
		var doc Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}

		for i := range doc.Resources {
			resource, err := buildResource(&doc.Resources[i])
			if err != nil {
				return nil, err
			}
			if seen[resource.Name] {
				return nil, fmt.Errorf("resource %s is defined twice", resource.Name)
			}
			seen[resource.Name] = true
			resources = append(resources, resource)
		}
	}
	return resources, nil
}

func buildResource(doc *ResourceDocument) (*schema.ResourceSchema, error) {
	if doc.Name == "" {
		return nil, fmt.Errorf("resource without a name")
	}

	resource := schema.NewResourceSchema(doc.Name)
	resource.Documentation = doc.Documentation
	if doc.Table != "" {
		resource.TableName = doc.Table
	}

	for _, fd := range doc.Fields {
		fieldType := schema.TypeString
		if fd.Type != "" {
			parsed, err := schema.ParsePrimitiveType(fd.Type)
			if err != nil {
				return nil, fmt.Errorf("resource %s: field %s: %w", doc.Name, fd.Name, err)
			}
			fieldType = parsed
		}
		if resource.HasField(fd.Name) {
			return nil, fmt.Errorf("resource %s: field %s is defined twice", doc.Name, fd.Name)
		}
		resource.AddField(&schema.Field{
			Name:     fd.Name,
			Type:     fieldType,
			Nullable: fd.Nullable,
			Length:   fd.Length,
			Column:   fd.Column,
		})
	}

	for i, value := range doc.Relationships {
		if !value.Has(schema.KeyType) {
			return nil, fmt.Errorf("resource %s: relationship %d has no type", doc.Name, i)
		}
		rel, err := schema.RelationshipFromValue(value)
		if err != nil {
			return nil, fmt.Errorf("resource %s: relationship %d: %w", doc.Name, i, err)
		}
		if err := schema.ValidateDeclaredJoinColumns(resource, rel); err != nil {
			return nil, err
		}
		if err := resource.AddRelationship(rel); err != nil {
			return nil, err
		}
	}

	resource.Identifier = doc.Identifier
	if len(resource.Identifier) == 0 && resource.HasField("id") {
		resource.Identifier = []string{"id"}
	}

	return resource, nil
}
