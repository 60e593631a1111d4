package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	defaultGeminiBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel     = "gemini-2.0-flash"
	defaultGeminiMaxTokens = 256
)

type generateRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// generationConfig pins sampling so the same prompt yields the same intent.
type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	TopK             int     `json:"topK"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata geminiUsage       `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// GeminiConfig selects the Gemini API key and model.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// GeminiProvider calls the Generative Language generateContent endpoint.
// It is the default interpreter backend.
type GeminiProvider struct {
	endpoint
}

func NewGeminiProvider(cfg GeminiConfig, temperature float64, timeout time.Duration, maxRetries int) *GeminiProvider {
	return &GeminiProvider{newEndpoint("gemini", cfg.APIKey, cfg.Model, cfg.BaseURL, endpointDefaults{
		baseURL:    defaultGeminiBaseURL,
		model:      defaultGeminiModel,
		retryDelay: time.Second,
	}, temperature, timeout, maxRetries)}
}

// Complete sends a single user turn and returns the first candidate's text.
func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	body := generateRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     p.temperature,
			TopK:            1,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if body.GenerationConfig.MaxOutputTokens <= 0 {
		body.GenerationConfig.MaxOutputTokens = defaultGeminiMaxTokens
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.JSON {
		body.GenerationConfig.ResponseMIMEType = "application/json"
	}

	// Request URLs carry the key and must not be logged.
	target := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, url.PathEscape(p.model), url.QueryEscape(p.apiKey))

	started := time.Now()
	var resp generateResponse
	err := p.retry(ctx, func() error {
		return p.postJSON(ctx, target, nil, body, &resp, decodeGeminiError)
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini: %w", ErrEmptyCompletion)
	}
	text := resp.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("gemini: %w", ErrEmptyCompletion)
	}

	return &Completion{
		Text:         text,
		Model:        p.model,
		InputTokens:  resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		Latency:      time.Since(started),
	}, nil
}

func decodeGeminiError(status int, body []byte) *APIError {
	return decodeProviderError("gemini", status, body, func(b []byte) (string, string, string) {
		var e struct {
			Error struct {
				Message string `json:"message"`
				Status  string `json:"status"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &e) != nil {
			return "", "", ""
		}
		return e.Error.Message, e.Error.Status, ""
	})
}
