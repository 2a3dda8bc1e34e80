package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mohitkumar/promptflow/logger"
	"github.com/mohitkumar/promptflow/model"
	"go.uber.org/zap"
)

const DEFAULT_EVALUATION_NAME = "Untitled Evaluation"

var (
	ErrInvalidVariableSets  = errors.New("variable sets must be an object keyed by id or a list")
	ErrDuplicateVariableSet = errors.New("duplicate variable set id")
)

type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// VariableSets is either an object keyed by variable set id or a list, in which
	// case every entry gets a generated id.
	VariableSets json.RawMessage `json:"variable_sets"`
}

type NotesRequest struct {
	ProjectId     string `json:"-"`
	EvaluationId  string `json:"-"`
	WorkflowId    string `json:"workflow_id"`
	VariableSetId string `json:"variable_set_id"`
	RunIndex      int    `json:"run_index"`
	Notes         string `json:"notes"`
}

func (r *Runner) CreateEvaluation(ctx context.Context, projectId string, req CreateRequest) (*model.Evaluation, error) {
	sets, err := ParseVariableSets(req.VariableSets)
	if err != nil {
		return nil, err
	}
	project, err := r.store.LoadProject(ctx, projectId)
	if err != nil {
		return nil, err
	}
	name := req.Name
	if name == "" {
		name = DEFAULT_EVALUATION_NAME
	}
	evaluation := model.Evaluation{
		Id:           uuid.NewString(),
		Name:         name,
		Description:  req.Description,
		VariableSets: sets,
		Results:      make(map[string][]model.RunRecord),
	}
	project.Evaluations = append(project.Evaluations, evaluation)
	if err := r.store.SaveProject(ctx, *project); err != nil {
		return nil, err
	}
	logger.Info("evaluation created", zap.String("project", projectId), zap.String("evaluation", evaluation.Id), zap.Int("variable_sets", len(sets)))
	return &evaluation, nil
}

func (r *Runner) GetEvaluation(ctx context.Context, projectId string, evaluationId string) (*model.Evaluation, error) {
	project, err := r.store.LoadProject(ctx, projectId)
	if err != nil {
		return nil, err
	}
	evaluation, ok := project.GetEvaluation(evaluationId)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEvaluationNotFound, evaluationId)
	}
	return evaluation, nil
}

func (r *Runner) DeleteEvaluation(ctx context.Context, projectId string, evaluationId string) error {
	project, err := r.store.LoadProject(ctx, projectId)
	if err != nil {
		return err
	}
	for i := range project.Evaluations {
		if project.Evaluations[i].Id == evaluationId {
			project.Evaluations = append(project.Evaluations[:i], project.Evaluations[i+1:]...)
			return r.store.SaveProject(ctx, *project)
		}
	}
	return fmt.Errorf("%w: %s", ErrEvaluationNotFound, evaluationId)
}

// SaveNotes attaches reviewer notes to one stored run, replacing earlier notes.
func (r *Runner) SaveNotes(ctx context.Context, req NotesRequest) error {
	project, err := r.store.LoadProject(ctx, req.ProjectId)
	if err != nil {
		return err
	}
	evaluation, ok := project.GetEvaluation(req.EvaluationId)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEvaluationNotFound, req.EvaluationId)
	}
	runs := evaluation.Results[req.WorkflowId]
	for i := range runs {
		if runs[i].VariableSetId == req.VariableSetId && runs[i].RunIndex == req.RunIndex {
			runs[i].Notes = req.Notes
			return r.store.SaveProject(ctx, *project)
		}
	}
	return fmt.Errorf("%w: workflow %s, variable set %s, run %d", ErrRunNotFound, req.WorkflowId, req.VariableSetId, req.RunIndex)
}

// ParseVariableSets accepts an object keyed by id or a list of variable sets.
// Absent input yields an empty set.
func ParseVariableSets(raw json.RawMessage) (map[string]model.VariableSet, error) {
	raw = bytes.TrimSpace(raw)
	sets := make(map[string]model.VariableSet)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return sets, nil
	}
	switch raw[0] {
	case '[':
		var list []model.VariableSet
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidVariableSets, err)
		}
		for _, vs := range list {
			sets[uuid.NewString()] = vs
		}
		return sets, nil
	case '{':
		return parseKeyedSets(raw)
	default:
		return nil, ErrInvalidVariableSets
	}
}

// parseKeyedSets walks the object token by token so repeated keys are caught
// instead of silently overwritten.
func parseKeyedSets(raw json.RawMessage) (map[string]model.VariableSet, error) {
	sets := make(map[string]model.VariableSet)
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVariableSets, err)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidVariableSets, err)
		}
		id, _ := tok.(string)
		if _, ok := sets[id]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateVariableSet, id)
		}
		var vs model.VariableSet
		if err := dec.Decode(&vs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidVariableSets, err)
		}
		sets[id] = vs
	}
	return sets, nil
}
