package agent

import (
	"sync"

	"github.com/mohitkumar/promptflow/analytics"
	"github.com/mohitkumar/promptflow/config"
	"github.com/mohitkumar/promptflow/container"
	"github.com/mohitkumar/promptflow/logger"
	"github.com/mohitkumar/promptflow/metadata"
	"github.com/mohitkumar/promptflow/metrics"
	"github.com/mohitkumar/promptflow/rest"
	"go.uber.org/zap"
)

type Agent struct {
	Config       config.Config
	container    *container.DIContainer
	httpServer   *rest.Server
	exporter     *metrics.LogExporter
	shutdown     bool
	shutdowns    chan struct{}
	shutdownLock sync.Mutex
	wg           sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	a := &Agent{
		Config:    config,
		shutdowns: make(chan struct{}),
	}
	setup := []func() error{
		a.setupAnalytics,
		a.setupContainer,
		a.setupMetrics,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupAnalytics() error {
	return analytics.InitDataCollector(a.Config.AnalyticsConfig)
}

func (a *Agent) setupContainer() error {
	a.container = container.NewDiContainer()
	return a.container.Init(a.Config)
}

func (a *Agent) setupMetrics() error {
	if a.Config.MetricsPeriod <= 0 {
		return nil
	}
	var err error
	a.exporter, err = metrics.StartLogExporter(a.Config.MetricsPeriod)
	return err
}

func (a *Agent) setupHttpServer() error {
	var err error
	projects := metadata.NewProjectService(a.container.GetProjectStore(), a.container.GetFunctionRunner())
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, projects, a.container.GetSchemaRegistry(),
		a.container.GetEngine(), a.container.GetEvaluationRunner())
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server failed", zap.Error(err))
			go a.Shutdown()
		}
	}()
	return nil
}

// Done is closed once Shutdown has begun.
func (a *Agent) Done() <-chan struct{} {
	return a.shutdowns
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	close(a.shutdowns)

	shutdown := []func() error{
		a.httpServer.Stop,
		func() error {
			if a.exporter == nil {
				return nil
			}
			return a.exporter.Stop()
		},
		a.container.Close,
		analytics.Close,
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	_ = logger.Sync()
	return nil
}
