// Package mapping provides the configuration value model used to describe
// relationship attributes and override fragments, together with the
// recursive merge applied when an override is laid over a definition.
package mapping

import (
	"fmt"
	"sort"
	"strconv"
)

// Kind identifies which variant a Value holds
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindSequence
	KindMapping
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is a scalar, a sequence of values, or a mapping from string keys to
// values. The zero Value is null.
type Value struct {
	kind    Kind
	scalar  interface{}
	seq     []Value
	mapping map[string]Value
}

// Null returns the null value
func Null() Value {
	return Value{}
}

// Scalar wraps a scalar (string, bool, number). A nil scalar is null.
func Scalar(v interface{}) Value {
	if v == nil {
		return Value{}
	}
	return Value{kind: KindScalar, scalar: v}
}

// Sequence builds a sequence value
func Sequence(items ...Value) Value {
	seq := make([]Value, len(items))
	copy(seq, items)
	return Value{kind: KindSequence, seq: seq}
}

// Mapping builds a mapping value. The map is copied.
func Mapping(entries map[string]Value) Value {
	m := make(map[string]Value, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	return Value{kind: KindMapping, mapping: m}
}

// EmptyMapping returns a mapping with no keys
func EmptyMapping() Value {
	return Value{kind: KindMapping, mapping: map[string]Value{}}
}

// FromAny converts plain Go configuration data (as produced by YAML or JSON
// decoders and viper) into a Value.
func FromAny(v interface{}) Value {
	switch val := v.(type) {
	case nil:
		return Null()
	case Value:
		return val.Clone()
	case map[string]interface{}:
		m := make(map[string]Value, len(val))
		for k, item := range val {
			m[k] = FromAny(item)
		}
		return Value{kind: KindMapping, mapping: m}
	case map[interface{}]interface{}:
		m := make(map[string]Value, len(val))
		for k, item := range val {
			m[fmt.Sprint(k)] = FromAny(item)
		}
		return Value{kind: KindMapping, mapping: m}
	case map[string]string:
		m := make(map[string]Value, len(val))
		for k, item := range val {
			m[k] = Scalar(item)
		}
		return Value{kind: KindMapping, mapping: m}
	case []interface{}:
		seq := make([]Value, len(val))
		for i, item := range val {
			seq[i] = FromAny(item)
		}
		return Value{kind: KindSequence, seq: seq}
	case []map[string]interface{}:
		seq := make([]Value, len(val))
		for i, item := range val {
			seq[i] = FromAny(item)
		}
		return Value{kind: KindSequence, seq: seq}
	case []string:
		seq := make([]Value, len(val))
		for i, item := range val {
			seq[i] = Scalar(item)
		}
		return Value{kind: KindSequence, seq: seq}
	default:
		return Scalar(val)
	}
}

// Kind returns the variant held by the value
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Len returns the number of elements of a sequence or keys of a mapping
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seq)
	case KindMapping:
		return len(v.mapping)
	default:
		return 0
	}
}

// Get returns the value stored under key. Missing keys and non-mappings
// yield null.
func (v Value) Get(key string) Value {
	if v.kind != KindMapping {
		return Value{}
	}
	return v.mapping[key]
}

// Has reports whether a mapping carries key
func (v Value) Has(key string) bool {
	if v.kind != KindMapping {
		return false
	}
	_, ok := v.mapping[key]
	return ok
}

// Index returns the i-th element of a sequence, or null when out of range
func (v Value) Index(i int) Value {
	if v.kind != KindSequence || i < 0 || i >= len(v.seq) {
		return Value{}
	}
	return v.seq[i]
}

// Items returns the elements of a sequence
func (v Value) Items() []Value {
	if v.kind != KindSequence {
		return nil
	}
	items := make([]Value, len(v.seq))
	copy(items, v.seq)
	return items
}

// Keys returns the keys of a mapping in sorted order
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(v.mapping))
	for k := range v.mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set stores item under key. A null receiver becomes a mapping; any other
// non-mapping kind panics.
func (v *Value) Set(key string, item Value) {
	switch v.kind {
	case KindNull:
		v.kind = KindMapping
		v.mapping = map[string]Value{}
	case KindMapping:
	default:
		panic(fmt.Sprintf("mapping: Set on %s value", v.kind))
	}
	v.mapping[key] = item
}

// Delete removes key from a mapping
func (v *Value) Delete(key string) {
	if v.kind == KindMapping {
		delete(v.mapping, key)
	}
}

// Append adds item to the end of a sequence. A null receiver becomes a
// sequence; any other kind panics.
func (v *Value) Append(item Value) {
	switch v.kind {
	case KindNull:
		v.kind = KindSequence
	case KindSequence:
	default:
		panic(fmt.Sprintf("mapping: Append on %s value", v.kind))
	}
	v.seq = append(v.seq, item)
}

// Raw returns the underlying scalar, or nil for other kinds
func (v Value) Raw() interface{} {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// String returns the scalar formatted as a string. Null yields "".
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindScalar:
		if s, ok := v.scalar.(string); ok {
			return s
		}
		return fmt.Sprint(v.scalar)
	default:
		return fmt.Sprintf("<%s>", v.kind)
	}
}

// Bool interprets the scalar as a boolean. ok is false when the value is not
// a boolean or a string spelling of one.
func (v Value) Bool() (b bool, ok bool) {
	if v.kind != KindScalar {
		return false, false
	}
	switch s := v.scalar.(type) {
	case bool:
		return s, true
	case string:
		parsed, err := strconv.ParseBool(s)
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		return false, false
	}
}

// Strings returns a sequence of scalars as strings. A single scalar is
// treated as a one-element sequence.
func (v Value) Strings() []string {
	switch v.kind {
	case KindScalar:
		return []string{v.String()}
	case KindSequence:
		out := make([]string, 0, len(v.seq))
		for _, item := range v.seq {
			out = append(out, item.String())
		}
		return out
	default:
		return nil
	}
}

// Interface converts the value back into plain Go data
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindSequence:
		out := make([]interface{}, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]interface{}, len(v.mapping))
		for k, item := range v.mapping {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// Clone returns a deep copy so the result shares no sequences or mappings
// with the receiver
func (v Value) Clone() Value {
	switch v.kind {
	case KindSequence:
		seq := make([]Value, len(v.seq))
		for i, item := range v.seq {
			seq[i] = item.Clone()
		}
		return Value{kind: KindSequence, seq: seq}
	case KindMapping:
		m := make(map[string]Value, len(v.mapping))
		for k, item := range v.mapping {
			m[k] = item.Clone()
		}
		return Value{kind: KindMapping, mapping: m}
	default:
		return v
	}
}

// Equal reports deep equality. Scalars compare by formatted value so that
// 1 and int64(1) decoded by different sources still match.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindScalar:
		return fmt.Sprint(v.scalar) == fmt.Sprint(other.scalar)
	case KindSequence:
		if len(v.seq) != len(other.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(other.seq[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(v.mapping) != len(other.mapping) {
			return false
		}
		for k, item := range v.mapping {
			o, ok := other.mapping[k]
			if !ok || !item.Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}
