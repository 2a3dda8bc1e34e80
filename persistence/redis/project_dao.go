package redis

import (
	"context"
	"errors"
	"sort"

	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/promptflow/logger"
	"github.com/mohitkumar/promptflow/model"
	"github.com/mohitkumar/promptflow/persistence"
	"github.com/mohitkumar/promptflow/util"
	"go.uber.org/zap"
)

const PROJECT_KEY string = "PROJECT"
const PROJECT_INDEX_KEY string = "PROJECTS"

var _ persistence.ProjectStore = new(redisProjectDao)

type redisProjectDao struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.Project]
}

func NewRedisProjectDao(conf Config) (*redisProjectDao, error) {
	base, err := newBaseDao(conf)
	if err != nil {
		return nil, err
	}
	return &redisProjectDao{
		baseDao:        base,
		encoderDecoder: util.NewJsonEncoderDecoder[model.Project](),
	}, nil
}

func (r *redisProjectDao) SaveProject(ctx context.Context, project model.Project) error {
	if err := persistence.ValidateProjectId(project.Id); err != nil {
		return err
	}
	data, err := r.encoderDecoder.Encode(project)
	if err != nil {
		return err
	}
	key := r.getNamespaceKey(PROJECT_KEY, project.Id)
	_, err = r.clientFor(project.Id).TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.SAdd(ctx, r.getNamespaceKey(PROJECT_INDEX_KEY), project.Id)
		return nil
	})
	if err != nil {
		logger.Error("error saving project", zap.String("project", project.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisProjectDao) LoadProject(ctx context.Context, id string) (*model.Project, error) {
	key := r.getNamespaceKey(PROJECT_KEY, id)
	data, err := r.clientFor(id).Get(ctx, key).Bytes()
	if errors.Is(err, rd.Nil) {
		return nil, persistence.ErrProjectNotFound
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	project, err := r.encoderDecoder.Decode(data)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return project, nil
}

func (r *redisProjectDao) DeleteProject(ctx context.Context, id string) error {
	key := r.getNamespaceKey(PROJECT_KEY, id)
	var del *rd.IntCmd
	_, err := r.clientFor(id).TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		del = pipe.Del(ctx, key)
		pipe.SRem(ctx, r.getNamespaceKey(PROJECT_INDEX_KEY), id)
		return nil
	})
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if del.Val() == 0 {
		return persistence.ErrProjectNotFound
	}
	return nil
}

func (r *redisProjectDao) ListProjects(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	for _, c := range r.clients {
		members, err := c.SMembers(ctx, r.getNamespaceKey(PROJECT_INDEX_KEY)).Result()
		if err != nil {
			return nil, persistence.StorageLayerError{Message: err.Error()}
		}
		ids = append(ids, members...)
	}
	sort.Strings(ids)
	return ids, nil
}
