package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Validate checks value against the named schema. On success it returns a normalized
// copy: defaults applied, scalars coerced to the declared type and unknown keys dropped.
func (r *Registry) Validate(name string, value any) (map[string]any, error) {
	s, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	v := &validator{registry: r}
	out := v.record("", s.Fields, value)
	if len(v.violations) > 0 {
		return nil, &ValidationError{Schema: name, Violations: v.violations}
	}
	return out, nil
}

type validator struct {
	registry   *Registry
	violations []string
}

func (v *validator) fail(path string, format string, args ...any) {
	if path == "" {
		path = "$"
	}
	v.violations = append(v.violations, path+": "+fmt.Sprintf(format, args...))
}

func join(path string, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func (v *validator) record(path string, fields []Field, value any) map[string]any {
	obj, ok := value.(map[string]any)
	if !ok {
		v.fail(path, "expected object, got %s", typeName(value))
		return nil
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		fieldPath := join(path, f.Name)
		raw, present := obj[f.Name]
		if !present || (raw == nil && f.Optional) {
			if f.Optional {
				out[f.Name] = f.Default
				continue
			}
			v.fail(fieldPath, "field required")
			continue
		}
		if coerced, ok := v.field(fieldPath, f, raw); ok {
			out[f.Name] = coerced
		}
	}
	return out
}

func (v *validator) field(path string, f Field, raw any) (any, bool) {
	switch f.Type {
	case FIELD_TYPE_STRING:
		switch t := raw.(type) {
		case string:
			return t, true
		case float64, json.Number, bool, int, int64:
			return cast.ToString(t), true
		}
		v.fail(path, "expected string, got %s", typeName(raw))
	case FIELD_TYPE_INTEGER:
		n, err := toInteger(raw)
		if err != nil {
			v.fail(path, "%s", err.Error())
			return nil, false
		}
		return n, v.bounds(path, f, float64(n))
	case FIELD_TYPE_NUMBER:
		if _, isBool := raw.(bool); isBool {
			v.fail(path, "expected number, got boolean")
			return nil, false
		}
		n, err := cast.ToFloat64E(raw)
		if err != nil {
			v.fail(path, "expected number, got %s", typeName(raw))
			return nil, false
		}
		return n, v.bounds(path, f, n)
	case FIELD_TYPE_BOOLEAN:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			v.fail(path, "expected boolean, got %s", typeName(raw))
			return nil, false
		}
		return b, true
	case FIELD_TYPE_OBJECT:
		members, err := v.registry.members(f)
		if err != nil {
			v.fail(path, "%s", err.Error())
			return nil, false
		}
		before := len(v.violations)
		out := v.record(path, members, raw)
		return out, len(v.violations) == before
	case FIELD_TYPE_ARRAY:
		list, ok := raw.([]any)
		if !ok {
			v.fail(path, "expected array, got %s", typeName(raw))
			return nil, false
		}
		before := len(v.violations)
		out := make([]any, 0, len(list))
		for i, item := range list {
			if coerced, ok := v.field(fmt.Sprintf("%s[%d]", path, i), *f.Items, item); ok {
				out = append(out, coerced)
			}
		}
		return out, len(v.violations) == before
	}
	return nil, false
}

func (v *validator) bounds(path string, f Field, n float64) bool {
	if f.Minimum != nil && n < *f.Minimum {
		v.fail(path, "must be >= %s", cast.ToString(*f.Minimum))
		return false
	}
	if f.Maximum != nil && n > *f.Maximum {
		v.fail(path, "must be <= %s", cast.ToString(*f.Maximum))
		return false
	}
	return true
}

// toInteger accepts whole numbers and numeric strings; fractional values are rejected
// rather than truncated.
func toInteger(raw any) (int64, error) {
	switch t := raw.(type) {
	case bool:
		return 0, fmt.Errorf("expected integer, got boolean")
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("expected integer, got fractional number %s", cast.ToString(t))
		}
		return int64(t), nil
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("expected integer, got %q", t)
		}
		return int64(f), nil
	}
	n, err := cast.ToInt64E(raw)
	if err != nil {
		return 0, fmt.Errorf("expected integer, got %s", typeName(raw))
	}
	return n, nil
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number, int, int64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", value)
}
