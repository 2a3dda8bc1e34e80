package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mohitkumar/promptflow/model"
	"github.com/spf13/cast"
)

var token = regexp.MustCompile(`{{\s*(.*?)\s*}}`)

type Error struct {
	Kind    model.ErrorKind
	Expr    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s in {{%s}}: %s", e.Kind, e.Expr, e.Message)
}

// Resolve substitutes every {{ expr }} token of tmpl with its value from scope.
// It returns the first resolution error and never a partially substituted string.
func Resolve(tmpl string, scope map[string]any) (string, error) {
	matches := token.FindAllStringSubmatchIndex(tmpl, -1)
	if len(matches) == 0 {
		return tmpl, nil
	}
	var sb strings.Builder
	last := 0
	for _, m := range matches {
		expr := tmpl[m[2]:m[3]]
		value, err := Lookup(expr, scope)
		if err != nil {
			return "", err
		}
		sb.WriteString(tmpl[last:m[0]])
		sb.WriteString(Stringify(value))
		last = m[1]
	}
	sb.WriteString(tmpl[last:])
	return sb.String(), nil
}

// Lookup parses expr and walks it through scope.
func Lookup(expr string, scope map[string]any) (any, error) {
	path, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	value, ok := scope[path.Base]
	if !ok {
		return nil, &Error{Kind: model.ERR_UNRESOLVED_VARIABLE, Expr: expr, Message: fmt.Sprintf("variable %s is not defined", path.Base)}
	}
	walked := path.Base
	for _, key := range path.Keys {
		var found bool
		switch m := value.(type) {
		case map[string]any:
			value, found = m[key]
		case map[string]string:
			value, found = m[key]
		case model.Scope:
			value, found = m[key]
		default:
			return nil, &Error{Kind: model.ERR_INVALID_INDEX, Expr: expr, Message: fmt.Sprintf("%s is %T, not a mapping", walked, value)}
		}
		if !found {
			return nil, &Error{Kind: model.ERR_KEY_NOT_FOUND, Expr: expr, Message: fmt.Sprintf("key %s not found in %s", key, walked)}
		}
		walked = walked + "[" + key + "]"
	}
	return value, nil
}

// Variables returns the base names referenced by tmpl, failing on malformed tokens.
func Variables(tmpl string) ([]string, error) {
	var names []string
	for _, m := range token.FindAllStringSubmatch(tmpl, -1) {
		path, err := Parse(m[1])
		if err != nil {
			return nil, err
		}
		names = append(names, path.Base)
	}
	return names, nil
}

// Stringify renders a scope value as prompt text. Strings are used as is,
// structured values as JSON and nil as null.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case map[string]any, []any, map[string]string, []string, model.Scope:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		s, err := cast.ToStringE(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return s
	}
}
