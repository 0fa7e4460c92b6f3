package mapping

// Merge lays override over base and returns the result. Neither input is
// modified.
//
// Mappings merge key by key and sequences merge position by position: an
// override element replaces (or recursively merges into) the base element at
// the same index, base elements past the end of the override are kept, and
// override elements past the end of the base are appended. Any other
// combination, including a kind mismatch, takes the override as is.
func Merge(base, override Value) Value {
	switch {
	case base.kind == KindMapping && override.kind == KindMapping:
		out := make(map[string]Value, len(base.mapping)+len(override.mapping))
		for k, v := range base.mapping {
			out[k] = v.Clone()
		}
		for k, v := range override.mapping {
			if existing, ok := out[k]; ok {
				out[k] = Merge(existing, v)
			} else {
				out[k] = v.Clone()
			}
		}
		return Value{kind: KindMapping, mapping: out}

	case base.kind == KindSequence && override.kind == KindSequence:
		n := len(base.seq)
		if len(override.seq) > n {
			n = len(override.seq)
		}
		out := make([]Value, n)
		for i := 0; i < n; i++ {
			switch {
			case i < len(base.seq) && i < len(override.seq):
				out[i] = Merge(base.seq[i], override.seq[i])
			case i < len(override.seq):
				out[i] = override.seq[i].Clone()
			default:
				out[i] = base.seq[i].Clone()
			}
		}
		return Value{kind: KindSequence, seq: out}

	default:
		return override.Clone()
	}
}
