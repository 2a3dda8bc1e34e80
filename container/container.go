package container

import (
	"fmt"
	"io"

	"github.com/mohitkumar/promptflow/action"
	"github.com/mohitkumar/promptflow/cache"
	"github.com/mohitkumar/promptflow/config"
	"github.com/mohitkumar/promptflow/engine"
	"github.com/mohitkumar/promptflow/evaluation"
	"github.com/mohitkumar/promptflow/executor"
	"github.com/mohitkumar/promptflow/flow"
	"github.com/mohitkumar/promptflow/llm"
	"github.com/mohitkumar/promptflow/logger"
	"github.com/mohitkumar/promptflow/persistence"
	"github.com/mohitkumar/promptflow/persistence/file"
	"github.com/mohitkumar/promptflow/persistence/memory"
	rd "github.com/mohitkumar/promptflow/persistence/redis"
	"github.com/mohitkumar/promptflow/schema"
	"go.uber.org/zap"
)

type DIContainer struct {
	initialized      bool
	backend          persistence.ProjectStore
	projectStore     persistence.ProjectStore
	schemas          *schema.Registry
	provider         llm.Provider
	functionRunner   action.FunctionRunner
	callExecutor     *executor.CallExecutor
	engine           *engine.Engine
	evaluationRunner *evaluation.Runner
}

func (d *DIContainer) setInitialized() {
	d.initialized = true
}

func NewDiContainer() *DIContainer {
	return &DIContainer{
		initialized: false,
	}
}

// Init builds the dependency graph: store, cache, schemas, provider, executor,
// step runner, engine and evaluation runner.
func (d *DIContainer) Init(conf config.Config) error {
	var err error
	switch conf.StorageType {
	case config.STORAGE_TYPE_REDIS:
		d.backend, err = rd.NewRedisProjectDao(rd.Config{
			Addrs:          conf.RedisConfig.Addrs,
			Namespace:      conf.RedisConfig.Namespace,
			Password:       conf.RedisConfig.Password,
			PoolSize:       conf.RedisConfig.PoolSize,
			PartitionCount: conf.RedisConfig.PartitionCount,
		})
	case config.STORAGE_TYPE_INMEM:
		d.backend = memory.NewMemoryProjectStore()
	case config.STORAGE_TYPE_FILE, "":
		d.backend, err = file.NewFileProjectStore(conf.FileConfig.DataDir)
	default:
		err = fmt.Errorf("unknown storage implementation %q", conf.StorageType)
	}
	if err != nil {
		return err
	}
	d.projectStore = d.backend
	if conf.CacheTTL > 0 {
		d.projectStore = cache.NewProjectCache(d.backend, conf.CacheTTL)
	}

	d.schemas = schema.NewBuiltinRegistry()
	if conf.SchemaFile != "" {
		if err := d.schemas.LoadFile(conf.SchemaFile); err != nil {
			return err
		}
	}

	d.provider, err = newProvider(conf.LLMConfig)
	if err != nil {
		return err
	}

	d.functionRunner = action.NewJsFunctionRunner(conf.EngineConfig.FunctionTimeout)
	d.callExecutor = executor.NewCallExecutor(d.provider, d.schemas)
	steps := flow.NewStepRunner(d.callExecutor, conf.EngineConfig.StepConcurrency)
	d.engine = engine.NewEngine(steps, d.functionRunner, engine.Options{FailFast: conf.EngineConfig.FailFast})
	d.evaluationRunner = evaluation.NewRunner(d.projectStore, d.engine)

	logger.Info("container initialized",
		zap.String("storage", string(conf.StorageType)),
		zap.Strings("schemas", d.schemas.Names()),
		zap.String("provider", string(conf.LLMConfig.DefaultProvider)))
	d.setInitialized()
	return nil
}

// newProvider routes every model to the default provider. With the openai default,
// models named "echo..." still answer locally.
func newProvider(conf config.LLMConfig) (llm.Provider, error) {
	echo := llm.NewEchoProvider()
	switch conf.DefaultProvider {
	case config.PROVIDER_TYPE_OPENAI, "":
		router := llm.NewRouter(llm.NewOpenAIProvider(llm.OpenAIConfig{
			BaseURL:       conf.BaseURL,
			APIKey:        conf.APIKey,
			Timeout:       conf.Timeout,
			MaxRetries:    conf.MaxRetries,
			RetryInterval: conf.RetryInterval,
		}))
		router.Handle("echo", echo)
		return router, nil
	case config.PROVIDER_TYPE_ECHO:
		return llm.NewRouter(echo), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", conf.DefaultProvider)
	}
}

func (d *DIContainer) GetProjectStore() persistence.ProjectStore {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.projectStore
}

func (d *DIContainer) GetSchemaRegistry() *schema.Registry {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.schemas
}

func (d *DIContainer) GetFunctionRunner() action.FunctionRunner {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.functionRunner
}

func (d *DIContainer) GetEngine() *engine.Engine {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.engine
}

func (d *DIContainer) GetEvaluationRunner() *evaluation.Runner {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.evaluationRunner
}

func (d *DIContainer) Close() error {
	if c, ok := d.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
