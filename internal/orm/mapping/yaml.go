package mapping

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FromYAML converts a decoded YAML node into a Value. Scalars are decoded
// with their resolved YAML tag so that `true` and `3` keep their types.
func FromYAML(node *yaml.Node) (Value, error) {
	if node == nil {
		return Null(), nil
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return FromYAML(node.Content[0])

	case yaml.AliasNode:
		return FromYAML(node.Alias)

	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return Null(), nil
		}
		var raw interface{}
		if err := node.Decode(&raw); err != nil {
			return Null(), fmt.Errorf("line %d: %w", node.Line, err)
		}
		return Scalar(raw), nil

	case yaml.SequenceNode:
		seq := make([]Value, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := FromYAML(child)
			if err != nil {
				return Null(), err
			}
			seq = append(seq, item)
		}
		return Value{kind: KindSequence, seq: seq}, nil

	case yaml.MappingNode:
		m := make(map[string]Value, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if key.Kind != yaml.ScalarNode {
				return Null(), fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			item, err := FromYAML(node.Content[i+1])
			if err != nil {
				return Null(), err
			}
			m[key.Value] = item
		}
		return Value{kind: KindMapping, mapping: m}, nil

	default:
		return Null(), fmt.Errorf("line %d: unsupported YAML node kind %v", node.Line, node.Kind)
	}
}

// UnmarshalYAML lets a Value be used directly as a yaml.v3 decode target
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	decoded, err := FromYAML(node)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// MarshalYAML renders the value as plain YAML data
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}
