package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mohitkumar/promptflow/action"
	"github.com/mohitkumar/promptflow/executor"
	"github.com/mohitkumar/promptflow/flow"
	"github.com/mohitkumar/promptflow/llm"
	"github.com/mohitkumar/promptflow/model"
	"github.com/mohitkumar/promptflow/schema"
	"github.com/stretchr/testify/require"
)

func newEngine(provider llm.Provider, opts Options) *Engine {
	ex := executor.NewCallExecutor(provider, schema.NewBuiltinRegistry())
	return NewEngine(flow.NewStepRunner(ex, 4), action.NewJsFunctionRunner(time.Second), opts)
}

func textCall(id string, prompt string, variable string) model.Call {
	c := model.NewCall(id)
	c.Conversation = []model.Message{{Role: "user", Content: prompt}}
	c.VariableName = variable
	return c
}

// delayedEcho echoes the prompt, sleeping for the duration mapped to the prompt text.
type delayedEcho struct {
	delays map[string]time.Duration
	mu     sync.Mutex
	order  []string
}

func (p *delayedEcho) Invoke(ctx context.Context, modelId string, prompt llm.Prompt, params llm.Params) (*llm.Response, error) {
	content := prompt.Conversation[0].Content
	time.Sleep(p.delays[content])
	p.mu.Lock()
	p.order = append(p.order, content)
	p.mu.Unlock()
	return &llm.Response{Content: content}, nil
}

func TestRun(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"hello world end to end":                testHelloWorld,
		"caller variables override workflow":    testInitialOverrides,
		"last declared call wins":               testLastDeclaredWins,
		"outputs flow into later steps":         testOutputsFlow,
		"failed output surfaces downstream":     testFailureSurfacesDownstream,
		"fail fast stops after failed step":     testFailFast,
		"functions run after calls":             testFunctions,
		"function error yields null output":     testFunctionError,
		"cancelled context stops between steps": testCancelled,
	} {
		t.Run(scenario, fn)
	}
}

func testHelloWorld(t *testing.T) {
	wf := model.Workflow{
		Id:    "wf",
		Steps: []model.Step{{Id: "s1", Calls: []model.Call{textCall("c1", "Hello {{name}}", "greeting")}}},
	}
	reports, err := newEngine(llm.NewEchoProvider(), Options{}).Run(context.Background(), wf, map[string]any{"name": "World"})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, "s1", reports[0].StepId)
	require.Equal(t, "Hello World", reports[0].Calls[0].Response)
}

func testInitialOverrides(t *testing.T) {
	wf := model.Workflow{
		Id:        "wf",
		Variables: map[string]string{"name": "Default", "greeting": "Hi"},
		Steps:     []model.Step{{Id: "s1", Calls: []model.Call{textCall("c1", "{{greeting}} {{name}}", "")}}},
	}
	reports, err := newEngine(llm.NewEchoProvider(), Options{}).Run(context.Background(), wf, map[string]any{"name": "Caller"})
	require.NoError(t, err)
	require.Equal(t, "Hi Caller", reports[0].Calls[0].Response)
}

func testLastDeclaredWins(t *testing.T) {
	p := &delayedEcho{delays: map[string]time.Duration{"first": 0, "second": 50 * time.Millisecond}}
	first := textCall("c1", "second", "out")
	second := textCall("c2", "first", "out")
	wf := model.Workflow{
		Id: "wf",
		Steps: []model.Step{
			{Id: "s1", Calls: []model.Call{first, second}},
			{Id: "s2", Calls: []model.Call{textCall("c3", "{{out}}", "")}},
		},
	}
	reports, err := newEngine(p, Options{}).Run(context.Background(), wf, nil)
	require.NoError(t, err)
	require.Equal(t, "first", p.order[0])
	require.Equal(t, "first", reports[1].Calls[0].Response)
}

func testOutputsFlow(t *testing.T) {
	wf := model.Workflow{
		Id: "wf",
		Steps: []model.Step{
			{Id: "s1", Calls: []model.Call{textCall("c1", "A", "a"), textCall("c2", "B", "b")}},
			{Id: "s2", Calls: []model.Call{textCall("c3", "{{a}}{{b}}", "ab")}},
		},
	}
	reports, err := newEngine(llm.NewEchoProvider(), Options{}).Run(context.Background(), wf, nil)
	require.NoError(t, err)
	require.Equal(t, "AB", reports[1].Calls[0].Response)
}

func testFailureSurfacesDownstream(t *testing.T) {
	wf := model.Workflow{
		Id: "wf",
		Steps: []model.Step{
			{Id: "s1", Calls: []model.Call{textCall("c1", "{{missing}}", "a"), textCall("c2", "ok", "b")}},
			{Id: "s2", Calls: []model.Call{textCall("c3", "{{a}}", "")}},
		},
	}
	reports, err := newEngine(llm.NewEchoProvider(), Options{}).Run(context.Background(), wf, nil)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.Equal(t, model.CALL_FAILED, reports[0].Calls[0].Status)
	require.Equal(t, model.CALL_SUCCESS, reports[0].Calls[1].Status)
	require.Equal(t, model.CALL_FAILED, reports[1].Calls[0].Status)
	require.Equal(t, model.ERR_UNRESOLVED_VARIABLE, reports[1].Calls[0].Error.Kind)
}

func testFailFast(t *testing.T) {
	wf := model.Workflow{
		Id: "wf",
		Steps: []model.Step{
			{Id: "s1", Calls: []model.Call{textCall("c1", "{{missing}}", "a")}},
			{Id: "s2", Calls: []model.Call{textCall("c2", "never", "")}},
		},
	}
	reports, err := newEngine(llm.NewEchoProvider(), Options{FailFast: true}).Run(context.Background(), wf, nil)
	require.True(t, errors.Is(err, ErrStepFailed))
	require.Len(t, reports, 1)
}

func testFunctions(t *testing.T) {
	wf := model.Workflow{
		Id: "wf",
		Steps: []model.Step{
			{
				Id:    "s1",
				Calls: []model.Call{textCall("c1", "hello", "text")},
				Functions: []model.FunctionCall{
					{Id: "f1", Code: `return_value = t.toUpperCase();`, InputVariables: map[string]string{"t": "text"}, OutputVariable: "upper"},
					{Id: "f2", Code: `return_value = u + "!";`, InputVariables: map[string]string{"u": "upper"}, OutputVariable: "upper"},
				},
			},
			{Id: "s2", Calls: []model.Call{textCall("c2", "{{upper}}", "")}},
		},
	}
	reports, err := newEngine(llm.NewEchoProvider(), Options{}).Run(context.Background(), wf, nil)
	require.NoError(t, err)
	require.Len(t, reports[0].Functions, 2)
	require.Equal(t, "HELLO", reports[0].Functions[0].Response)
	require.Equal(t, "HELLO!", reports[1].Calls[0].Response)
}

func testFunctionError(t *testing.T) {
	wf := model.Workflow{
		Id:        "wf",
		Variables: map[string]string{"x": "set"},
		Steps: []model.Step{
			{Id: "s1", Functions: []model.FunctionCall{{Id: "f1", Code: `throw new Error("nope")`, OutputVariable: "x"}}},
			{Id: "s2", Calls: []model.Call{textCall("c1", "{{x}}", "")}},
		},
	}
	reports, err := newEngine(llm.NewEchoProvider(), Options{}).Run(context.Background(), wf, nil)
	require.NoError(t, err)
	require.Contains(t, reports[0].Functions[0].Error, "nope")
	require.Nil(t, reports[0].Functions[0].Response)
	require.Equal(t, "null", reports[1].Calls[0].Response)
}

func testCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	wf := model.Workflow{Id: "wf", Steps: []model.Step{{Id: "s1"}}}
	reports, err := newEngine(llm.NewEchoProvider(), Options{}).Run(ctx, wf, nil)
	require.True(t, errors.Is(err, context.Canceled))
	require.Empty(t, reports)
}
