package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mohitkumar/promptflow/model"
)

var identifier = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Path is a literal lookup chain: a scope variable followed by zero or more map keys.
type Path struct {
	Base string
	Keys []string
}

func (p Path) String() string {
	var sb strings.Builder
	sb.WriteString(p.Base)
	for _, k := range p.Keys {
		sb.WriteString("[")
		sb.WriteString(k)
		sb.WriteString("]")
	}
	return sb.String()
}

// Parse turns `name`, `name.key` or `name[key]["other key"]` into a Path.
// Nothing is evaluated: segments are literals only.
func Parse(expr string) (Path, error) {
	expr = strings.TrimSpace(expr)
	if identifier.MatchString(expr) {
		return Path{Base: expr}, nil
	}
	i := 0
	for i < len(expr) && isIdentChar(expr[i]) {
		i++
	}
	if i == 0 {
		return Path{}, invalid(expr, "expression must start with a variable name")
	}
	path := Path{Base: expr[:i]}
	for i < len(expr) {
		switch expr[i] {
		case ' ', '\t':
			// blanks may separate segments: `a [x]` reads as `a[x]`
			i++
		case '.':
			j := i + 1
			for j < len(expr) && isIdentChar(expr[j]) {
				j++
			}
			if j == i+1 {
				return Path{}, invalid(expr, fmt.Sprintf("empty key after '.' at offset %d", i))
			}
			path.Keys = append(path.Keys, expr[i+1:j])
			i = j
		case '[':
			key, next, err := parseBracket(expr, i)
			if err != nil {
				return Path{}, err
			}
			path.Keys = append(path.Keys, key)
			i = next
		default:
			return Path{}, invalid(expr, fmt.Sprintf("unexpected character %q at offset %d", expr[i], i))
		}
	}
	return path, nil
}

// parseBracket reads one [key] segment starting at the '[' at offset start.
func parseBracket(expr string, start int) (string, int, error) {
	i := start + 1
	for i < len(expr) && expr[i] == ' ' {
		i++
	}
	if i >= len(expr) {
		return "", 0, invalid(expr, "unbalanced '['")
	}
	var key string
	if q := expr[i]; q == '\'' || q == '"' {
		end := strings.IndexByte(expr[i+1:], q)
		if end < 0 {
			return "", 0, invalid(expr, "unterminated quoted key")
		}
		key = expr[i+1 : i+1+end]
		i = i + 1 + end + 1
		for i < len(expr) && expr[i] == ' ' {
			i++
		}
		if i >= len(expr) || expr[i] != ']' {
			return "", 0, invalid(expr, "expected ']' after quoted key")
		}
	} else {
		end := strings.IndexByte(expr[i:], ']')
		if end < 0 {
			return "", 0, invalid(expr, "unbalanced '['")
		}
		key = strings.TrimSpace(expr[i : i+end])
		if strings.ContainsAny(key, "[\"'") {
			return "", 0, invalid(expr, fmt.Sprintf("invalid key %q", key))
		}
		i = i + end
	}
	if key == "" {
		return "", 0, invalid(expr, "empty key")
	}
	return key, i + 1, nil
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func invalid(expr string, msg string) *Error {
	return &Error{Kind: model.ERR_INVALID_EXPRESSION, Expr: expr, Message: msg}
}
