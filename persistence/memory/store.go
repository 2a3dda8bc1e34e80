package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mohitkumar/promptflow/model"
	"github.com/mohitkumar/promptflow/persistence"
	"github.com/mohitkumar/promptflow/util"
)

var _ persistence.ProjectStore = new(memoryProjectStore)

// memoryProjectStore keeps encoded documents so callers never share maps with the store.
type memoryProjectStore struct {
	mu             sync.RWMutex
	projects       map[string][]byte
	encoderDecoder util.EncoderDecoder[model.Project]
}

func NewMemoryProjectStore() *memoryProjectStore {
	return &memoryProjectStore{
		projects:       make(map[string][]byte),
		encoderDecoder: util.NewJsonEncoderDecoder[model.Project](),
	}
}

func (s *memoryProjectStore) LoadProject(ctx context.Context, id string) (*model.Project, error) {
	s.mu.RLock()
	data, ok := s.projects[id]
	s.mu.RUnlock()
	if !ok {
		return nil, persistence.ErrProjectNotFound
	}
	return s.encoderDecoder.Decode(data)
}

func (s *memoryProjectStore) SaveProject(ctx context.Context, project model.Project) error {
	if err := persistence.ValidateProjectId(project.Id); err != nil {
		return err
	}
	data, err := s.encoderDecoder.Encode(project)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[project.Id] = data
	return nil
}

func (s *memoryProjectStore) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return persistence.ErrProjectNotFound
	}
	delete(s.projects, id)
	return nil
}

func (s *memoryProjectStore) ListProjects(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.projects))
	for id := range s.projects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
