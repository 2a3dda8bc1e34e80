package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mohitkumar/promptflow/model"
)

type Prompt struct {
	SystemPrompt string
	Conversation []model.Message
}

type Params struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
}

type Response struct {
	Content string
}

// Provider is the external LLM collaborator. An error means the request could not be
// served at all; content problems are the caller's concern.
type Provider interface {
	Invoke(ctx context.Context, modelId string, prompt Prompt, params Params) (*Response, error)
}

type TransportError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s provider returned status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s provider request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// EchoProvider answers with the prompt it was given. Used for dry runs and tests.
type EchoProvider struct{}

func NewEchoProvider() *EchoProvider {
	return &EchoProvider{}
}

func (p *EchoProvider) Invoke(ctx context.Context, modelId string, prompt Prompt, params Params) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Provider: "echo", Err: err}
	}
	parts := make([]string, 0, len(prompt.Conversation)+1)
	if prompt.SystemPrompt != "" {
		parts = append(parts, prompt.SystemPrompt)
	}
	for _, m := range prompt.Conversation {
		if m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	return &Response{Content: strings.Join(parts, "\n")}, nil
}

// Router picks a provider by the longest model name prefix and falls back otherwise.
type Router struct {
	mu       sync.RWMutex
	routes   map[string]Provider
	prefixes []string
	fallback Provider
}

func NewRouter(fallback Provider) *Router {
	return &Router{
		routes:   make(map[string]Provider),
		fallback: fallback,
	}
}

func (r *Router) Handle(prefix string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.routes[prefix]; !ok {
		r.prefixes = append(r.prefixes, prefix)
		sort.Slice(r.prefixes, func(i, j int) bool {
			return len(r.prefixes[i]) > len(r.prefixes[j])
		})
	}
	r.routes[prefix] = p
}

func (r *Router) Invoke(ctx context.Context, modelId string, prompt Prompt, params Params) (*Response, error) {
	p := r.lookup(modelId)
	if p == nil {
		return nil, &TransportError{Provider: "router", Err: fmt.Errorf("no provider for model %s", modelId)}
	}
	return p.Invoke(ctx, modelId, prompt, params)
}

func (r *Router) lookup(modelId string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, prefix := range r.prefixes {
		if strings.HasPrefix(modelId, prefix) {
			return r.routes[prefix]
		}
	}
	return r.fallback
}
