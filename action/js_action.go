package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/mohitkumar/promptflow/logger"
	"go.uber.org/zap"
)

const RETURN_VARIABLE = "return_value"

var ErrFunctionTimeout = errors.New("function execution timed out")

var _ FunctionRunner = new(JsFunctionRunner)

// JsFunctionRunner runs function code in a fresh goja runtime per execution. The runtime
// has no module loader, filesystem or network access; eval is removed.
// Code communicates its result by assigning return_value.
type JsFunctionRunner struct {
	timeout time.Duration
}

func NewJsFunctionRunner(timeout time.Duration) *JsFunctionRunner {
	return &JsFunctionRunner{
		timeout: timeout,
	}
}

func (r *JsFunctionRunner) Validate(code string) error {
	if len(code) == 0 {
		return fmt.Errorf("function code can not be empty")
	}
	_, err := goja.Compile("function.js", code, false)
	return err
}

func (r *JsFunctionRunner) Execute(ctx context.Context, function string, code string, inputs map[string]any) (output any, err error) {
	logger.Info("running function", zap.String("function", function))
	defer func() {
		if p := recover(); p != nil {
			err = &FunctionExecutionError{Function: function, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	program, err := goja.Compile(function+".js", code, false)
	if err != nil {
		return nil, &FunctionExecutionError{Function: function, Err: err}
	}

	vm := goja.New()
	vm.GlobalObject().Delete("eval")
	plain, err := plainValues(inputs)
	if err != nil {
		return nil, &FunctionExecutionError{Function: function, Err: err}
	}
	for name, value := range plain {
		if err := vm.Set(name, value); err != nil {
			return nil, &FunctionExecutionError{Function: function, Err: err}
		}
	}
	if err := vm.Set("$", plain); err != nil {
		return nil, &FunctionExecutionError{Function: function, Err: err}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		var timeout <-chan time.Time
		if r.timeout > 0 {
			timer := time.NewTimer(r.timeout)
			defer timer.Stop()
			timeout = timer.C
		}
		select {
		case <-done:
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-timeout:
			vm.Interrupt(ErrFunctionTimeout)
		}
	}()

	if _, err := vm.RunProgram(program); err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if cause, ok := interrupted.Value().(error); ok {
				return nil, &FunctionExecutionError{Function: function, Err: cause}
			}
		}
		return nil, &FunctionExecutionError{Function: function, Err: err}
	}

	val := vm.Get(RETURN_VARIABLE)
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, nil
	}
	res, err := json.Marshal(val.Export())
	if err != nil {
		return nil, &FunctionExecutionError{Function: function, Err: fmt.Errorf("return_value is not serializable: %w", err)}
	}
	if err := json.Unmarshal(res, &output); err != nil {
		return nil, &FunctionExecutionError{Function: function, Err: err}
	}
	return output, nil
}

// plainValues copies inputs through JSON so the runtime only ever sees plain data.
func plainValues(inputs map[string]any) (map[string]any, error) {
	data, err := json.Marshal(inputs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
