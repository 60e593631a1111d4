package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicAPIVersion       = "2023-06-01"
	defaultAnthropicBaseURL   = "https://api.anthropic.com"
	defaultAnthropicModel     = "claude-3-5-haiku-latest"
	defaultAnthropicMaxTokens = 256
)

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Usage   anthropicUsage `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AnthropicConfig selects the Anthropic account and model.
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// AnthropicProvider calls the Messages API.
type AnthropicProvider struct {
	endpoint
}

func NewAnthropicProvider(cfg AnthropicConfig, temperature float64, timeout time.Duration, maxRetries int) *AnthropicProvider {
	return &AnthropicProvider{newEndpoint("anthropic", cfg.APIKey, cfg.Model, cfg.BaseURL, endpointDefaults{
		baseURL:    defaultAnthropicBaseURL,
		model:      defaultAnthropicModel,
		retryDelay: time.Second,
	}, temperature, timeout, maxRetries)}
}

// Complete returns the first non-blank text block. The Messages API has
// no JSON mode, so req.JSON relies on the prompt alone.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	body := messagesRequest{
		Model:       p.model,
		MaxTokens:   req.MaxTokens,
		System:      req.System,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: p.temperature,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = defaultAnthropicMaxTokens
	}

	header := http.Header{}
	header.Set("x-api-key", p.apiKey)
	header.Set("anthropic-version", anthropicAPIVersion)

	started := time.Now()
	var resp messagesResponse
	err := p.retry(ctx, func() error {
		return p.postJSON(ctx, p.baseURL+"/v1/messages", header, body, &resp, decodeAnthropicError)
	})
	if err != nil {
		return nil, err
	}

	for _, block := range resp.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return &Completion{
				Text:         block.Text,
				Model:        p.model,
				InputTokens:  resp.Usage.InputTokens,
				OutputTokens: resp.Usage.OutputTokens,
				Latency:      time.Since(started),
			}, nil
		}
	}
	return nil, fmt.Errorf("anthropic: %w", ErrEmptyCompletion)
}

func decodeAnthropicError(status int, body []byte) *APIError {
	return decodeProviderError("anthropic", status, body, func(b []byte) (string, string, string) {
		var e struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &e) != nil {
			return "", "", ""
		}
		return e.Error.Message, e.Error.Type, ""
	})
}
