package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 10 << 20

// endpoint is the transport and retry policy shared by every provider.
type endpoint struct {
	name        string
	client      *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxRetries  int
	retryDelay  time.Duration
}

type endpointDefaults struct {
	baseURL    string
	model      string
	retryDelay time.Duration
}

func newEndpoint(name, apiKey, model, baseURL string, d endpointDefaults, temperature float64, timeout time.Duration, maxRetries int) endpoint {
	if baseURL == "" {
		baseURL = d.baseURL
	}
	if model == "" {
		model = d.model
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return endpoint{
		name: name,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		apiKey:      apiKey,
		model:       model,
		baseURL:     strings.TrimRight(baseURL, "/"),
		temperature: temperature,
		maxRetries:  max(maxRetries, 0),
		retryDelay:  d.retryDelay,
	}
}

// Provider returns the provider name used in metrics and errors.
func (e *endpoint) Provider() string { return e.name }

// Model returns the model identifier requests are sent to.
func (e *endpoint) Model() string { return e.model }

// postJSON sends body to url and decodes a 200 response into out. Any other
// status is turned into an *APIError by decodeErr.
func (e *endpoint) postJSON(ctx context.Context, url string, header http.Header, body, out any, decodeErr func(status int, body []byte) *APIError) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal request: %w", e.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", e.name, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return networkError(e.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return networkError(e.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return decodeErr(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: failed to unmarshal response: %w", e.name, err)
	}
	return nil
}

// retry runs fn until it succeeds, fails permanently, or the retry budget
// is spent. Waits double from retryDelay.
func (e *endpoint) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(e.retryDelay << (attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: context cancelled during retry wait: %w", e.name, ctx.Err())
			case <-timer.C:
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !isTransientError(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%s: exhausted %d retries: %w", e.name, e.maxRetries, lastErr)
}

// decodeProviderError builds an APIError, taking message and type from the
// provider's JSON error body when extract finds them.
func decodeProviderError(provider string, status int, body []byte, extract func([]byte) (msg, typ, code string)) *APIError {
	apiErr := &APIError{Provider: provider, StatusCode: status, Message: string(body)}
	if msg, typ, code := extract(body); msg != "" {
		apiErr.Message = msg
		apiErr.Type = typ
		apiErr.Code = code
	}
	return apiErr
}
