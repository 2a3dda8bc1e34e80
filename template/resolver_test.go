package template

import (
	"errors"
	"testing"

	"github.com/mohitkumar/promptflow/model"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	scope := map[string]any{
		"name":  "World",
		"count": 3,
		"ratio": 0.5,
		"user": map[string]any{
			"profile": map[string]any{"city": "Pune", "first name": "Ada"},
			"tags":    []any{"a", "b"},
		},
		"a":   map[string]any{"x": "v"},
		"nil": nil,
	}
	for scenario, tc := range map[string]struct {
		tmpl string
		want string
	}{
		"bare identifier":         {"Hello {{name}}", "Hello World"},
		"whitespace inside":       {"Hello {{  name   }}!", "Hello World!"},
		"no tokens":               {"plain text", "plain text"},
		"bracket key":             {"{{a[x]}}", "v"},
		"nested brackets":         {"{{user[profile][city]}}", "Pune"},
		"quoted key with space":   {`{{user["profile"]['first name']}}`, "Ada"},
		"dotted path":             {"{{user.profile.city}}", "Pune"},
		"number":                  {"n={{count}} r={{ratio}}", "n=3 r=0.5"},
		"structured value":        {"{{user[tags]}}", `["a","b"]`},
		"null value":              {"{{nil}}", "null"},
		"repeated tokens":         {"{{name}}-{{name}}", "World-World"},
		"single braces untouched": {"{name}", "{name}"},
	} {
		t.Run(scenario, func(t *testing.T) {
			got, err := Resolve(tc.tmpl, scope)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestResolveIsPure(t *testing.T) {
	scope := map[string]any{"a": "1", "b": map[string]any{"c": "2"}}
	first, err := Resolve("{{a}} {{b[c]}}", scope)
	require.NoError(t, err)
	second, err := Resolve("{{a}} {{b[c]}}", scope)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, map[string]any{"a": "1", "b": map[string]any{"c": "2"}}, scope)
}

func TestResolveErrors(t *testing.T) {
	scope := map[string]any{
		"name": "World",
		"a":    map[string]any{"x": "v"},
	}
	for scenario, tc := range map[string]struct {
		tmpl string
		kind model.ErrorKind
	}{
		"missing variable":        {"Hello {{missing}}", model.ERR_UNRESOLVED_VARIABLE},
		"missing base of path":    {"{{missing[x]}}", model.ERR_UNRESOLVED_VARIABLE},
		"index into string":       {"{{name[x]}}", model.ERR_INVALID_INDEX},
		"missing key":             {"{{a[y]}}", model.ERR_KEY_NOT_FOUND},
		"first error wins":        {"{{name}} {{missing}} {{a[y]}}", model.ERR_UNRESOLVED_VARIABLE},
		"unbalanced bracket":      {"{{a[x}}", model.ERR_INVALID_EXPRESSION},
		"empty key":               {"{{a[]}}", model.ERR_INVALID_EXPRESSION},
		"call expression":         {"{{a.keys()}}", model.ERR_INVALID_EXPRESSION},
		"attribute of expression": {"{{__import__('os')}}", model.ERR_INVALID_EXPRESSION},
	} {
		t.Run(scenario, func(t *testing.T) {
			got, err := Resolve(tc.tmpl, scope)
			require.Error(t, err)
			require.Empty(t, got)
			var terr *Error
			require.True(t, errors.As(err, &terr))
			require.Equal(t, tc.kind, terr.Kind)
		})
	}
}

func TestParse(t *testing.T) {
	path, err := Parse(` user[ "a]b" ].c[d] `)
	require.NoError(t, err)
	require.Equal(t, Path{Base: "user", Keys: []string{"a]b", "c", "d"}}, path)

	_, err = Parse("[x]")
	require.Error(t, err)

	path, err = Parse("a [x]  ['y'] .z")
	require.NoError(t, err)
	require.Equal(t, Path{Base: "a", Keys: []string{"x", "y", "z"}}, path)

	_, err = Parse("a b")
	require.Error(t, err)
}

func TestResolveBlankBeforeSegment(t *testing.T) {
	scope := map[string]any{"a": map[string]any{"x": "v"}}
	got, err := Resolve("{{ a [x] }}", scope)
	require.NoError(t, err)
	require.Equal(t, "v", got)

	names, err := Variables("{{ a [x] }}")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, names)
}

func TestVariables(t *testing.T) {
	names, err := Variables("{{a}} and {{b[c]}} and {{a}}")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "a"}, names)

	_, err = Variables("{{b[}}")
	require.Error(t, err)
}
