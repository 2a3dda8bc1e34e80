package model

// Scope is the name to value environment threaded through one workflow run.
type Scope map[string]any

func NewScope(vars map[string]string) Scope {
	s := make(Scope, len(vars))
	for k, v := range vars {
		s[k] = v
	}
	return s
}

// Clone deep copies nested maps and slices so a snapshot can be read concurrently
// while the owner keeps mutating the original.
func (s Scope) Clone() Scope {
	out := make(Scope, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge returns a new scope holding s overlaid with overlay. Overlay values win.
func (s Scope) Merge(overlay map[string]any) Scope {
	out := s.Clone()
	for k, v := range overlay {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		l := make([]any, len(t))
		for i, e := range t {
			l[i] = cloneValue(e)
		}
		return l
	default:
		return v
	}
}
