package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mohitkumar/promptflow/logger"
	"github.com/mohitkumar/promptflow/model"
	"github.com/mohitkumar/promptflow/persistence"
	"github.com/mohitkumar/promptflow/util"
	"go.uber.org/zap"
)

const PROJECT_FILE_SUFFIX = ".json"

var _ persistence.ProjectStore = new(fileProjectStore)

// fileProjectStore keeps one JSON document per project under dir.
type fileProjectStore struct {
	dir            string
	mu             sync.Mutex
	encoderDecoder util.EncoderDecoder[model.Project]
}

func NewFileProjectStore(dir string) (*fileProjectStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return &fileProjectStore{
		dir:            dir,
		encoderDecoder: util.NewIndentedJsonEncoderDecoder[model.Project]("    "),
	}, nil
}

func (s *fileProjectStore) path(id string) string {
	return filepath.Join(s.dir, id+PROJECT_FILE_SUFFIX)
}

func (s *fileProjectStore) LoadProject(ctx context.Context, id string) (*model.Project, error) {
	if err := persistence.ValidateProjectId(id); err != nil {
		return nil, persistence.ErrProjectNotFound
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.ErrProjectNotFound
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	project, err := s.encoderDecoder.Decode(data)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: fmt.Sprintf("decoding project %s: %v", id, err)}
	}
	return project, nil
}

// SaveProject writes to a temporary file and renames it so a crash never leaves a
// truncated document behind.
func (s *fileProjectStore) SaveProject(ctx context.Context, project model.Project) error {
	if err := persistence.ValidateProjectId(project.Id); err != nil {
		return err
	}
	data, err := s.encoderDecoder.Encode(project)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, project.Id+".*.tmp")
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if err := os.Rename(tmp.Name(), s.path(project.Id)); err != nil {
		os.Remove(tmp.Name())
		logger.Error("error saving project", zap.String("project", project.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *fileProjectStore) DeleteProject(ctx context.Context, id string) error {
	if err := persistence.ValidateProjectId(id); err != nil {
		return persistence.ErrProjectNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.ErrProjectNotFound
	}
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *fileProjectStore) ListProjects(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), PROJECT_FILE_SUFFIX) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), PROJECT_FILE_SUFFIX))
	}
	sort.Strings(ids)
	return ids, nil
}
