package schema

import (
	"errors"
	"fmt"
	"strings"
)

type FieldType string

const FIELD_TYPE_STRING FieldType = "string"
const FIELD_TYPE_INTEGER FieldType = "integer"
const FIELD_TYPE_NUMBER FieldType = "number"
const FIELD_TYPE_BOOLEAN FieldType = "boolean"
const FIELD_TYPE_OBJECT FieldType = "object"
const FIELD_TYPE_ARRAY FieldType = "array"

// Field describes one member of a record. Object fields either reference another
// registered schema by name (Schema) or declare their members inline (Fields).
type Field struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Optional    bool      `json:"optional,omitempty" yaml:"optional,omitempty"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Schema      string    `json:"schema,omitempty" yaml:"schema,omitempty"`
	Fields      []Field   `json:"fields,omitempty" yaml:"fields,omitempty"`
	Items       *Field    `json:"items,omitempty" yaml:"items,omitempty"`
}

type Schema struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field `json:"fields" yaml:"fields"`
}

func (s Schema) check() error {
	if s.Name == "" {
		return fmt.Errorf("schema name can not be empty")
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s must declare at least one field", s.Name)
	}
	return checkFields(s.Name, s.Fields)
}

func checkFields(path string, fields []Field) error {
	seen := make(map[string]bool)
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("%s: field name can not be empty", path)
		}
		if seen[f.Name] {
			return fmt.Errorf("%s: duplicate field %s", path, f.Name)
		}
		seen[f.Name] = true
		if err := checkField(path+"."+f.Name, f); err != nil {
			return err
		}
	}
	return nil
}

func checkField(path string, f Field) error {
	switch f.Type {
	case FIELD_TYPE_STRING, FIELD_TYPE_INTEGER, FIELD_TYPE_NUMBER, FIELD_TYPE_BOOLEAN:
	case FIELD_TYPE_OBJECT:
		if f.Schema == "" && len(f.Fields) == 0 {
			return fmt.Errorf("%s: object field needs a schema reference or inline fields", path)
		}
		if len(f.Fields) > 0 {
			return checkFields(path, f.Fields)
		}
	case FIELD_TYPE_ARRAY:
		if f.Items == nil {
			return fmt.Errorf("%s: array field needs items", path)
		}
		return checkField(path+"[]", *f.Items)
	default:
		return fmt.Errorf("%s: unsupported type %q", path, f.Type)
	}
	return nil
}

var ErrUnknownSchema = errors.New("unknown schema")

type UnknownSchemaError struct {
	Name string
}

func (e *UnknownSchemaError) Error() string {
	return fmt.Sprintf("unknown schema %s", e.Name)
}

func (e *UnknownSchemaError) Is(target error) bool {
	return target == ErrUnknownSchema
}

// ValidationError carries every field level violation found in one value.
type ValidationError struct {
	Schema     string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d validation error(s) for %s: %s", len(e.Violations), e.Schema, strings.Join(e.Violations, "; "))
}
