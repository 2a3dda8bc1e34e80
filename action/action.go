package action

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mohitkumar/promptflow/model"
	"github.com/oliveagle/jsonpath"
)

// FunctionRunner executes user supplied function code in an isolated interpreter.
type FunctionRunner interface {
	Validate(code string) error
	Execute(ctx context.Context, function string, code string, inputs map[string]any) (any, error)
}

type FunctionExecutionError struct {
	Function string
	Err      error
}

func (e *FunctionExecutionError) Error() string {
	return fmt.Sprintf("%s: function %s: %v", model.ERR_FUNCTION_EXECUTION, e.Function, e.Err)
}

func (e *FunctionExecutionError) Unwrap() error {
	return e.Err
}

// ResolveInputs looks every input reference up in scope. A reference is either a scope
// variable name or a JSONPath starting with "$.". Unresolvable inputs are passed as nil
// and reported as warnings.
func ResolveInputs(inputs map[string]string, scope model.Scope) (map[string]any, []string) {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	data := make(map[string]any, len(inputs))
	var warnings []string
	for _, name := range names {
		ref := inputs[name]
		if strings.HasPrefix(ref, "$") {
			value, err := jsonpath.JsonPathLookup(map[string]any(scope.Clone()), ref)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("input %s: path %s not resolved: %v", name, ref, err))
				data[name] = nil
				continue
			}
			data[name] = value
			continue
		}
		value, ok := scope[ref]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("input %s: variable %s not found in scope", name, ref))
		}
		data[name] = value
	}
	return data, warnings
}
