package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mohitkumar/promptflow/engine"
	"github.com/mohitkumar/promptflow/logger"
	"github.com/mohitkumar/promptflow/metrics"
	"github.com/mohitkumar/promptflow/model"
	"github.com/mohitkumar/promptflow/persistence"
	"go.uber.org/zap"
)

var (
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrWorkflowNotFound   = errors.New("workflow not found")
	ErrNoWorkflows        = errors.New("no workflows to run in this project")
	ErrNoVariableSets     = errors.New("no variable sets to run in this evaluation")
	ErrRunNotFound        = errors.New("run not found")
)

type WorkflowRunner interface {
	Run(ctx context.Context, wf model.Workflow, initial map[string]any) ([]model.StepReport, error)
}

type RunRequest struct {
	ProjectId    string
	EvaluationId string
	// WorkflowIds restricts the run to a subset of the project's workflows.
	WorkflowIds []string
}

// Runner drives evaluations. Every finished iteration is saved before the next one
// starts, and iterations already stored are never repeated.
type Runner struct {
	store  persistence.ProjectStore
	engine WorkflowRunner
}

func NewRunner(store persistence.ProjectStore, engine WorkflowRunner) *Runner {
	return &Runner{
		store:  store,
		engine: engine,
	}
}

func (r *Runner) Run(ctx context.Context, req RunRequest) (map[string][]model.RunRecord, error) {
	project, err := r.store.LoadProject(ctx, req.ProjectId)
	if err != nil {
		return nil, err
	}
	evaluation, ok := project.GetEvaluation(req.EvaluationId)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEvaluationNotFound, req.EvaluationId)
	}
	workflows, err := selectWorkflows(project, req.WorkflowIds)
	if err != nil {
		return nil, err
	}
	if len(evaluation.VariableSets) == 0 {
		return nil, ErrNoVariableSets
	}
	if evaluation.Results == nil {
		evaluation.Results = make(map[string][]model.RunRecord)
	}

	setIds := make([]string, 0, len(evaluation.VariableSets))
	for id := range evaluation.VariableSets {
		setIds = append(setIds, id)
	}
	sort.Strings(setIds)

	for wfIndex, wf := range workflows {
		logger.Info("evaluating workflow",
			zap.String("evaluation", evaluation.Id),
			zap.String("workflow", wf.Id),
			zap.Int("index", wfIndex+1),
			zap.Int("total", len(workflows)))
		for _, setId := range setIds {
			if err := r.runVariableSet(ctx, project, evaluation, wf, setId); err != nil {
				return evaluation.Results, err
			}
		}
	}
	logger.Info("evaluation complete", zap.String("project", project.Id), zap.String("evaluation", evaluation.Id))
	return evaluation.Results, nil
}

func (r *Runner) runVariableSet(ctx context.Context, project *model.Project, evaluation *model.Evaluation, wf model.Workflow, setId string) error {
	vset := evaluation.VariableSets[setId]
	completed := evaluation.CompletedRuns(wf.Id, setId)
	if completed >= vset.NumRuns {
		logger.Info("skipping completed variable set",
			zap.String("workflow", wf.Id),
			zap.String("variable_set", setId),
			zap.Int("completed", completed),
			zap.Int("runs", vset.NumRuns))
		return nil
	}

	variables := make(map[string]any, len(project.CommonVariableNames))
	for _, name := range project.CommonVariableNames {
		value, ok := vset.Variables[name]
		if !ok {
			value = ""
		}
		variables[name] = value
	}

	for i := completed; i < vset.NumRuns; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Info("running iteration",
			zap.String("workflow", wf.Id),
			zap.String("variable_set", setId),
			zap.Int("iteration", i+1),
			zap.Int("runs", vset.NumRuns))

		reports, err := r.engine.Run(ctx, wf, variables)
		if err != nil && !errors.Is(err, engine.ErrStepFailed) {
			logger.Error("evaluation iteration failed", zap.String("workflow", wf.Id), zap.String("variable_set", setId), zap.Error(err))
			if saveErr := r.store.SaveProject(ctx, *project); saveErr != nil {
				logger.Error("error saving evaluation progress", zap.Error(saveErr))
			}
			return fmt.Errorf("workflow %s, variable set %s, iteration %d: %w", wf.Id, setId, i, err)
		}

		comparison := Compare(reports, vset.IdealOutput)
		evaluation.Results[wf.Id] = append(evaluation.Results[wf.Id], model.RunRecord{
			VariableSetId: setId,
			RunIndex:      i,
			Output:        reports,
			Comparison:    &comparison,
		})
		if err := r.store.SaveProject(ctx, *project); err != nil {
			return fmt.Errorf("saving evaluation progress: %w", err)
		}
		metrics.RecordIteration(ctx, wf.Id)
		logger.Debug("saved iteration", zap.String("workflow", wf.Id), zap.String("variable_set", setId), zap.Int("run_index", i), zap.Float64("match_score", comparison.MatchScore))
	}
	return nil
}

func selectWorkflows(project *model.Project, ids []string) ([]model.Workflow, error) {
	if len(ids) == 0 {
		if len(project.Workflows) == 0 {
			return nil, ErrNoWorkflows
		}
		return project.Workflows, nil
	}
	workflows := make([]model.Workflow, 0, len(ids))
	for _, id := range ids {
		wf, ok := project.GetWorkflow(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
		}
		workflows = append(workflows, *wf)
	}
	return workflows, nil
}
