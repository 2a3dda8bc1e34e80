package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohitkumar/promptflow/model"
)

var ErrProjectNotFound = errors.New("project not found")

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

// ProjectStore persists whole project documents. Every implementation hands out
// independent copies: mutating a loaded project never changes the stored one.
type ProjectStore interface {
	LoadProject(ctx context.Context, id string) (*model.Project, error)
	SaveProject(ctx context.Context, project model.Project) error
	DeleteProject(ctx context.Context, id string) error
	ListProjects(ctx context.Context) ([]string, error)
}

func ValidateProjectId(id string) error {
	if id == "" {
		return fmt.Errorf("project id can not be empty")
	}
	for _, c := range id {
		if c == '/' || c == '\\' || c == ':' || c == 0 {
			return fmt.Errorf("project id %q contains invalid character %q", id, c)
		}
	}
	if id == "." || id == ".." {
		return fmt.Errorf("invalid project id %q", id)
	}
	return nil
}
