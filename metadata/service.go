package metadata

import (
	"context"
	"fmt"

	"github.com/mohitkumar/promptflow/action"
	"github.com/mohitkumar/promptflow/logger"
	"github.com/mohitkumar/promptflow/model"
	"github.com/mohitkumar/promptflow/persistence"
	"go.uber.org/zap"
)

// ProjectService guards the project store: documents are validated before they are saved.
type ProjectService interface {
	GetProject(ctx context.Context, id string) (*model.Project, error)
	SaveProject(ctx context.Context, project model.Project) error
	DeleteProject(ctx context.Context, id string) error
	ListProjects(ctx context.Context) ([]string, error)
	ValidateProject(project model.Project) error
	GetWorkflow(ctx context.Context, projectId string, workflowId string) (*model.Workflow, error)
}

type ProjectServiceImpl struct {
	storage   persistence.ProjectStore
	functions action.FunctionRunner
}

func NewProjectService(storage persistence.ProjectStore, functions action.FunctionRunner) ProjectService {
	return &ProjectServiceImpl{
		storage:   storage,
		functions: functions,
	}
}

func (s *ProjectServiceImpl) GetProject(ctx context.Context, id string) (*model.Project, error) {
	return s.storage.LoadProject(ctx, id)
}

func (s *ProjectServiceImpl) SaveProject(ctx context.Context, project model.Project) error {
	if err := s.ValidateProject(project); err != nil {
		return err
	}
	if err := s.storage.SaveProject(ctx, project); err != nil {
		logger.Error("error saving project", zap.String("project", project.Id), zap.Error(err))
		return err
	}
	logger.Info("project saved", zap.String("project", project.Id), zap.Int("workflows", len(project.Workflows)))
	return nil
}

func (s *ProjectServiceImpl) DeleteProject(ctx context.Context, id string) error {
	return s.storage.DeleteProject(ctx, id)
}

func (s *ProjectServiceImpl) ListProjects(ctx context.Context) ([]string, error) {
	return s.storage.ListProjects(ctx)
}

func (s *ProjectServiceImpl) GetWorkflow(ctx context.Context, projectId string, workflowId string) (*model.Workflow, error) {
	project, err := s.storage.LoadProject(ctx, projectId)
	if err != nil {
		return nil, err
	}
	wf, ok := project.GetWorkflow(workflowId)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowId)
	}
	return wf, nil
}

func (s *ProjectServiceImpl) ValidateProject(project model.Project) error {
	return ValidateProject(project, s.functions)
}
