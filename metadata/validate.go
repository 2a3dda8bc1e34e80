package metadata

import (
	"errors"
	"fmt"

	"github.com/mohitkumar/promptflow/action"
	"github.com/mohitkumar/promptflow/model"
	"github.com/mohitkumar/promptflow/persistence"
	"github.com/mohitkumar/promptflow/template"
)

var ErrWorkflowNotFound = errors.New("workflow not found")

type InvalidProjectError struct {
	Message string
}

func (e *InvalidProjectError) Error() string {
	return "invalid project: " + e.Message
}

func invalidf(format string, args ...any) error {
	return &InvalidProjectError{Message: fmt.Sprintf(format, args...)}
}

// ValidateProject checks a document before it is stored. Ids must be unique within
// their parent, every template must parse and every function must compile.
func ValidateProject(project model.Project, functions action.FunctionRunner) error {
	if err := persistence.ValidateProjectId(project.Id); err != nil {
		return invalidf("%v", err)
	}
	workflowIds := make(map[string]bool)
	for _, wf := range project.Workflows {
		if wf.Id == "" {
			return invalidf("workflow without id")
		}
		if workflowIds[wf.Id] {
			return invalidf("workflow id %s is duplicate", wf.Id)
		}
		workflowIds[wf.Id] = true
		if err := validateWorkflow(wf, functions); err != nil {
			return err
		}
	}
	evaluationIds := make(map[string]bool)
	for _, ev := range project.Evaluations {
		if ev.Id == "" || evaluationIds[ev.Id] {
			return invalidf("evaluation id %q is missing or duplicate", ev.Id)
		}
		evaluationIds[ev.Id] = true
	}
	return nil
}

func validateWorkflow(wf model.Workflow, functions action.FunctionRunner) error {
	stepIds := make(map[string]bool)
	for _, step := range wf.Steps {
		if step.Id == "" || stepIds[step.Id] {
			return invalidf("workflow %s: step id %q is missing or duplicate", wf.Id, step.Id)
		}
		stepIds[step.Id] = true

		callIds := make(map[string]bool)
		for _, call := range step.Calls {
			if call.Id == "" || callIds[call.Id] {
				return invalidf("workflow %s, step %s: call id %q is missing or duplicate", wf.Id, step.Id, call.Id)
			}
			callIds[call.Id] = true
			if err := validateCall(call); err != nil {
				return invalidf("workflow %s, step %s, call %s: %v", wf.Id, step.Id, call.Id, err)
			}
		}
		for _, fn := range step.Functions {
			if fn.Id == "" || callIds[fn.Id] {
				return invalidf("workflow %s, step %s: function id %q is missing or duplicate", wf.Id, step.Id, fn.Id)
			}
			callIds[fn.Id] = true
			if fn.OutputVariable == "" {
				return invalidf("workflow %s, step %s, function %s: output variable is required", wf.Id, step.Id, fn.Id)
			}
			if err := functions.Validate(fn.Code); err != nil {
				return invalidf("workflow %s, step %s, function %s: %v", wf.Id, step.Id, fn.Id, err)
			}
		}
	}
	return nil
}

func validateCall(call model.Call) error {
	switch call.OutputType {
	case model.OUTPUT_TYPE_TEXT, model.OUTPUT_TYPE_JSON:
	default:
		return fmt.Errorf("unknown output type %q", call.OutputType)
	}
	if call.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if _, err := template.Variables(call.SystemPrompt); err != nil {
		return err
	}
	for i, msg := range call.Conversation {
		if _, err := template.Variables(msg.Content); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}
