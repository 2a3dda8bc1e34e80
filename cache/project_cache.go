package cache

import (
	"context"
	"time"

	"github.com/mohitkumar/promptflow/logger"
	"github.com/mohitkumar/promptflow/model"
	"github.com/mohitkumar/promptflow/persistence"
	"github.com/mohitkumar/promptflow/util"
	c "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var _ persistence.ProjectStore = new(ProjectCache)

// ProjectCache is a read through cache in front of a ProjectStore. Entries are kept
// encoded so every load returns a fresh copy.
type ProjectCache struct {
	store          persistence.ProjectStore
	cache          *c.Cache
	encoderDecoder util.EncoderDecoder[model.Project]
}

func NewProjectCache(store persistence.ProjectStore, ttl time.Duration) *ProjectCache {
	if ttl <= 0 {
		ttl = c.NoExpiration
	}
	return &ProjectCache{
		store:          store,
		cache:          c.New(ttl, 10*time.Minute),
		encoderDecoder: util.NewJsonEncoderDecoder[model.Project](),
	}
}

func (pc *ProjectCache) LoadProject(ctx context.Context, id string) (*model.Project, error) {
	if data, found := pc.cache.Get(id); found {
		return pc.encoderDecoder.Decode(data.([]byte))
	}
	project, err := pc.store.LoadProject(ctx, id)
	if err != nil {
		return nil, err
	}
	pc.put(*project)
	return project, nil
}

func (pc *ProjectCache) SaveProject(ctx context.Context, project model.Project) error {
	if err := pc.store.SaveProject(ctx, project); err != nil {
		pc.cache.Delete(project.Id)
		return err
	}
	pc.put(project)
	return nil
}

func (pc *ProjectCache) DeleteProject(ctx context.Context, id string) error {
	pc.cache.Delete(id)
	return pc.store.DeleteProject(ctx, id)
}

func (pc *ProjectCache) ListProjects(ctx context.Context) ([]string, error) {
	return pc.store.ListProjects(ctx)
}

func (pc *ProjectCache) put(project model.Project) {
	data, err := pc.encoderDecoder.Encode(project)
	if err != nil {
		logger.Warn("not caching project", zap.String("project", project.Id), zap.Error(err))
		pc.cache.Delete(project.Id)
		return
	}
	pc.cache.SetDefault(project.Id, data)
}
