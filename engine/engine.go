package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohitkumar/promptflow/action"
	"github.com/mohitkumar/promptflow/analytics"
	"github.com/mohitkumar/promptflow/logger"
	"github.com/mohitkumar/promptflow/model"
	"go.uber.org/zap"
)

var ErrStepFailed = errors.New("step failed")

type Options struct {
	// FailFast stops the run after the first step containing a failed call.
	FailFast bool
}

type StepScheduler interface {
	RunStep(ctx context.Context, step model.Step, scope model.Scope) []model.CallResult
}

// Engine runs workflows. It is the only writer of a run's scope.
type Engine struct {
	steps     StepScheduler
	functions action.FunctionRunner
	opts      Options
}

func NewEngine(steps StepScheduler, functions action.FunctionRunner, opts Options) *Engine {
	return &Engine{
		steps:     steps,
		functions: functions,
		opts:      opts,
	}
}

// Run executes the steps of wf in order and returns one report per executed step.
// The scope starts as the workflow variables overlaid with initial. Failed calls do not
// stop the run unless FailFast is set; their output variables are simply not written.
func (e *Engine) Run(ctx context.Context, wf model.Workflow, initial map[string]any) ([]model.StepReport, error) {
	scope := model.NewScope(wf.Variables).Merge(initial)
	reports := make([]model.StepReport, 0, len(wf.Steps))
	logger.Info("running workflow", zap.String("workflow", wf.Id), zap.String("name", wf.Name), zap.Int("steps", len(wf.Steps)))

	for _, step := range wf.Steps {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report := model.StepReport{
			StepId: step.Id,
			Title:  step.Title,
			Calls:  e.steps.RunStep(ctx, step, scope),
		}
		for _, res := range report.Calls {
			analytics.RecordCall(wf.Id, step.Id, res)
			if res.Succeeded() && res.VariableName != "" {
				scope[res.VariableName] = res.Response
			}
		}
		for _, fn := range step.Functions {
			res := e.runFunction(ctx, fn, scope)
			analytics.RecordFunction(wf.Id, step.Id, res)
			if fn.OutputVariable != "" {
				scope[fn.OutputVariable] = res.Response
			}
			report.Functions = append(report.Functions, res)
		}
		reports = append(reports, report)

		if e.opts.FailFast && report.Failed() {
			logger.Error("stopping workflow after failed step", zap.String("workflow", wf.Id), zap.String("step", step.Id))
			return reports, fmt.Errorf("%w: %s", ErrStepFailed, step.Id)
		}
	}
	logger.Info("workflow finished", zap.String("workflow", wf.Id))
	return reports, nil
}

func (e *Engine) runFunction(ctx context.Context, fn model.FunctionCall, scope model.Scope) model.FunctionResult {
	inputs, warnings := action.ResolveInputs(fn.InputVariables, scope)
	res := model.FunctionResult{
		CallId:         fn.Id,
		Title:          fn.Title,
		InputVariables: inputs,
		OutputVariable: fn.OutputVariable,
		Warnings:       warnings,
	}
	if e.functions == nil {
		res.Error = (&action.FunctionExecutionError{Function: fn.Id, Err: errors.New("no function runner configured")}).Error()
		return res
	}
	out, err := e.functions.Execute(ctx, fn.Id, fn.Code, inputs)
	if err != nil {
		logger.Error("function failed", zap.String("function", fn.Id), zap.Error(err))
		res.Error = err.Error()
		return res
	}
	res.Response = out
	return res
}
