package flow

import (
	"context"
	"time"

	"github.com/mohitkumar/promptflow/logger"
	"github.com/mohitkumar/promptflow/metrics"
	"github.com/mohitkumar/promptflow/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type CallRunner interface {
	Execute(ctx context.Context, call model.Call, scope model.Scope) model.CallResult
}

// StepRunner fans the calls of one step out concurrently and joins them all.
type StepRunner struct {
	runner      CallRunner
	concurrency int
}

// NewStepRunner bounds the number of in flight calls per step; zero or less means unbounded.
func NewStepRunner(runner CallRunner, concurrency int) *StepRunner {
	return &StepRunner{
		runner:      runner,
		concurrency: concurrency,
	}
}

// RunStep returns one result per call in declared order. Every call reads the same
// snapshot of scope, so calls of a step never observe each other's output, and a
// failing call does not cancel its siblings.
func (s *StepRunner) RunStep(ctx context.Context, step model.Step, scope model.Scope) []model.CallResult {
	start := time.Now()
	logger.Info("running step", zap.String("step", step.Id), zap.String("title", step.Title), zap.Int("calls", len(step.Calls)))

	snapshot := scope.Clone()
	results := make([]model.CallResult, len(step.Calls))
	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i := range step.Calls {
		i := i
		call := step.Calls[i]
		g.Go(func() error {
			results[i] = s.runner.Execute(ctx, call, snapshot)
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	metrics.RecordStep(ctx, elapsed)
	logger.Info("step finished", zap.String("step", step.Id), zap.Duration("elapsed", elapsed))
	return results
}
