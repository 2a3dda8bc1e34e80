package metrics

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	KeyModel     = tag.MustNewKey("model")
	KeyStatus    = tag.MustNewKey("status")
	KeyErrorKind = tag.MustNewKey("error_kind")
	KeyWorkflow  = tag.MustNewKey("workflow")
)

var (
	CallAttempts  = stats.Int64("promptflow/call_attempts", "LLM invocations made by the call executor", stats.UnitDimensionless)
	CallLatency   = stats.Float64("promptflow/call_latency", "Time from first attempt to terminal call state", stats.UnitMilliseconds)
	StepLatency   = stats.Float64("promptflow/step_latency", "Time spent running one workflow step", stats.UnitMilliseconds)
	EvalIteration = stats.Int64("promptflow/eval_iterations", "Completed evaluation iterations", stats.UnitDimensionless)
)

var latencyBuckets = view.Distribution(10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000)

var (
	CallAttemptsView = &view.View{
		Name:        "promptflow/call_attempts",
		Measure:     CallAttempts,
		Description: "LLM invocations by model",
		TagKeys:     []tag.Key{KeyModel},
		Aggregation: view.Sum(),
	}
	CallCountView = &view.View{
		Name:        "promptflow/calls",
		Measure:     CallLatency,
		Description: "Finished calls by model, status and error kind",
		TagKeys:     []tag.Key{KeyModel, KeyStatus, KeyErrorKind},
		Aggregation: view.Count(),
	}
	CallLatencyView = &view.View{
		Name:        "promptflow/call_latency",
		Measure:     CallLatency,
		Description: "Call latency distribution by model",
		TagKeys:     []tag.Key{KeyModel},
		Aggregation: latencyBuckets,
	}
	StepLatencyView = &view.View{
		Name:        "promptflow/step_latency",
		Measure:     StepLatency,
		Description: "Step latency distribution",
		Aggregation: latencyBuckets,
	}
	EvalIterationView = &view.View{
		Name:        "promptflow/eval_iterations",
		Measure:     EvalIteration,
		Description: "Evaluation iterations by workflow",
		TagKeys:     []tag.Key{KeyWorkflow},
		Aggregation: view.Count(),
	}
)

var Views = []*view.View{CallAttemptsView, CallCountView, CallLatencyView, StepLatencyView, EvalIterationView}

func Register() error {
	return view.Register(Views...)
}

func Unregister() {
	view.Unregister(Views...)
}

func RecordAttempt(ctx context.Context, modelName string) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(KeyModel, modelName)}, CallAttempts.M(1))
}

func RecordCall(ctx context.Context, modelName string, status string, errorKind string, elapsed time.Duration) {
	if errorKind == "" {
		errorKind = "none"
	}
	_ = stats.RecordWithTags(ctx, []tag.Mutator{
		tag.Upsert(KeyModel, modelName),
		tag.Upsert(KeyStatus, status),
		tag.Upsert(KeyErrorKind, errorKind),
	}, CallLatency.M(millis(elapsed)))
}

func RecordStep(ctx context.Context, elapsed time.Duration) {
	stats.Record(ctx, StepLatency.M(millis(elapsed)))
}

func RecordIteration(ctx context.Context, workflowId string) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(KeyWorkflow, workflowId)}, EvalIteration.M(1))
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
