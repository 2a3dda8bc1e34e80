package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mohitkumar/promptflow/logger"
	"go.uber.org/zap"
)

const defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	// RetryInterval is the first backoff delay; it grows exponentially after that.
	RetryInterval time.Duration
}

// OpenAIProvider talks to any OpenAI compatible chat completion endpoint.
type OpenAIProvider struct {
	conf    OpenAIConfig
	baseURL string
	client  *http.Client
}

func NewOpenAIProvider(conf OpenAIConfig) *OpenAIProvider {
	baseURL := conf.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	} else if !strings.HasSuffix(baseURL, "/chat/completions") {
		baseURL = strings.TrimSuffix(baseURL, "/") + "/chat/completions"
	}
	if conf.Timeout == 0 {
		conf.Timeout = 5 * time.Minute
	}
	if conf.MaxRetries < 0 {
		conf.MaxRetries = 0
	}
	if conf.RetryInterval <= 0 {
		conf.RetryInterval = 500 * time.Millisecond
	}
	return &OpenAIProvider{
		conf:    conf,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: conf.Timeout,
			Transport: &http.Transport{
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
	}
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
	TopP        float64         `json:"top_p"`
}

type openaiResponse struct {
	Choices []struct {
		Message      openaiMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (p *OpenAIProvider) Invoke(ctx context.Context, modelId string, prompt Prompt, params Params) (*Response, error) {
	req := openaiRequest{
		Model:       modelId,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
	}
	if prompt.SystemPrompt != "" {
		req.Messages = append(req.Messages, openaiMessage{Role: "system", Content: prompt.SystemPrompt})
	}
	for _, m := range prompt.Conversation {
		req.Messages = append(req.Messages, openaiMessage{Role: m.Role, Content: m.Content})
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &TransportError{Provider: "openai", Err: fmt.Errorf("marshal request: %w", err)}
	}

	respBody, err := p.doRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	var resp openaiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &TransportError{Provider: "openai", Err: fmt.Errorf("parse response: %w", err)}
	}
	if resp.Error != nil {
		return nil, &TransportError{Provider: "openai", Err: fmt.Errorf("api error: %s", resp.Error.Message)}
	}
	if len(resp.Choices) == 0 {
		return nil, &TransportError{Provider: "openai", Err: fmt.Errorf("response has no choices")}
	}
	return &Response{Content: resp.Choices[0].Message.Content}, nil
}

// doRequest posts body, retrying network failures, 429 and 5xx with exponential backoff.
// Other client errors are permanent.
func (p *OpenAIProvider) doRequest(ctx context.Context, body []byte) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.conf.RetryInterval
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(p.conf.MaxRetries)), ctx)

	var respBody []byte
	err := backoff.RetryNotify(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(&TransportError{Provider: "openai", Err: err})
		}
		req.Header.Set("Content-Type", "application/json")
		if p.conf.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.conf.APIKey)
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return &TransportError{Provider: "openai", Err: err}
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &TransportError{Provider: "openai", Err: fmt.Errorf("read response: %w", err)}
		}
		if resp.StatusCode == http.StatusOK {
			respBody = data
			return nil
		}
		terr := &TransportError{Provider: "openai", StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(data)))}
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return backoff.Permanent(terr)
		}
		return terr
	}, b, func(err error, next time.Duration) {
		logger.Warn("retrying llm request", zap.Duration("backoff", next), zap.Error(err))
	})
	if err != nil {
		var terr *TransportError
		if errors.As(err, &terr) {
			return nil, terr
		}
		return nil, &TransportError{Provider: "openai", Err: err}
	}
	return respBody, nil
}
