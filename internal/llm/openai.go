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
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultOpenAIMaxTokens = 256
)

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// OpenAIConfig selects the OpenAI account and model.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIProvider calls the Chat Completions API. BaseURL may point at any
// compatible server.
type OpenAIProvider struct {
	endpoint
}

func NewOpenAIProvider(cfg OpenAIConfig, temperature float64, timeout time.Duration, maxRetries int) *OpenAIProvider {
	return &OpenAIProvider{newEndpoint("openai", cfg.APIKey, cfg.Model, cfg.BaseURL, endpointDefaults{
		baseURL:    defaultOpenAIBaseURL,
		model:      defaultOpenAIModel,
		retryDelay: 2 * time.Second,
	}, temperature, timeout, maxRetries)}
}

// Complete sends the system instruction, when set, and the prompt as chat
// messages.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	body := chatRequest{
		Model:       p.model,
		Temperature: p.temperature,
		MaxTokens:   req.MaxTokens,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = defaultOpenAIMaxTokens
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.apiKey)

	started := time.Now()
	var resp chatResponse
	err := p.retry(ctx, func() error {
		return p.postJSON(ctx, p.baseURL+"/chat/completions", header, body, &resp, decodeOpenAIError)
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("openai: %w", ErrEmptyCompletion)
	}
	return &Completion{
		Text:         resp.Choices[0].Message.Content,
		Model:        p.model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Latency:      time.Since(started),
	}, nil
}

func decodeOpenAIError(status int, body []byte) *APIError {
	return decodeProviderError("openai", status, body, func(b []byte) (string, string, string) {
		var e struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &e) != nil {
			return "", "", ""
		}
		return e.Error.Message, e.Error.Type, e.Error.Code
	})
}
