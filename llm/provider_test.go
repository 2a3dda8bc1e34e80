package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohitkumar/promptflow/model"
	"github.com/stretchr/testify/require"
)

func TestEchoProvider(t *testing.T) {
	p := NewEchoProvider()
	resp, err := p.Invoke(context.Background(), "echo", Prompt{
		Conversation: []model.Message{{Role: "user", Content: "Hello World"}},
	}, Params{})
	require.NoError(t, err)
	require.Equal(t, "Hello World", resp.Content)

	resp, err = p.Invoke(context.Background(), "echo", Prompt{
		SystemPrompt: "sys",
		Conversation: []model.Message{{Role: "user", Content: "a"}, {Role: "assistant", Content: ""}},
	}, Params{})
	require.NoError(t, err)
	require.Equal(t, "sys\na", resp.Content)
}

type constProvider string

func (c constProvider) Invoke(ctx context.Context, modelId string, prompt Prompt, params Params) (*Response, error) {
	return &Response{Content: string(c)}, nil
}

func TestRouter(t *testing.T) {
	r := NewRouter(constProvider("fallback"))
	r.Handle("gpt-", constProvider("openai"))
	r.Handle("gpt-4o", constProvider("openai-4o"))

	for modelId, want := range map[string]string{
		"gpt-4":      "openai",
		"gpt-4o-min": "openai-4o",
		"llama":      "fallback",
	} {
		resp, err := r.Invoke(context.Background(), modelId, Prompt{}, Params{})
		require.NoError(t, err)
		require.Equal(t, want, resp.Content)
	}

	_, err := NewRouter(nil).Invoke(context.Background(), "x", Prompt{}, Params{})
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
}

func TestOpenAIProvider(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req openaiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "gpt-4", req.Model)
		require.Equal(t, 64, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		require.Equal(t, "system", req.Messages[0].Role)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi there"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{BaseURL: srv.URL + "/v1", APIKey: "key", MaxRetries: 1, RetryInterval: time.Millisecond})
	resp, err := p.Invoke(context.Background(), "gpt-4", Prompt{
		SystemPrompt: "be brief",
		Conversation: []model.Message{{Role: "user", Content: "hello"}},
	}, Params{Temperature: 0.1, MaxTokens: 64, TopP: 1})
	require.NoError(t, err)
	require.Equal(t, "hi there", resp.Content)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestOpenAIProviderClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`bad key`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{BaseURL: srv.URL, MaxRetries: 3, RetryInterval: time.Millisecond})
	_, err := p.Invoke(context.Background(), "gpt-4", Prompt{}, Params{})
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	require.Equal(t, http.StatusUnauthorized, terr.StatusCode)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestOpenAIProviderRetryBudget(t *testing.T) {
	for scenario, tc := range map[string]struct {
		status  int
		retries int
	}{
		"server errors exhaust retries": {http.StatusServiceUnavailable, 3},
		"rate limit is retried":         {http.StatusTooManyRequests, 2},
		"no retries configured":         {http.StatusBadGateway, 0},
	} {
		t.Run(scenario, func(t *testing.T) {
			testRetryBudget(t, tc.status, tc.retries)
		})
	}
}

func testRetryBudget(t *testing.T, status int, retries int) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{BaseURL: srv.URL, MaxRetries: retries, RetryInterval: time.Millisecond})
	_, err := p.Invoke(context.Background(), "gpt-4", Prompt{}, Params{})
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	require.Equal(t, status, terr.StatusCode)
	require.Equal(t, int32(retries+1), atomic.LoadInt32(&calls))
}

func TestOpenAIProviderCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewOpenAIProvider(OpenAIConfig{BaseURL: srv.URL, MaxRetries: 5, RetryInterval: time.Millisecond})
	_, err := p.Invoke(ctx, "gpt-4", Prompt{}, Params{})
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
}
