package papersources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxivite/search-service/internal/domain"
)

func fastConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Source:     "test",
		RateLimit:  100, // High rate to avoid test delays
		BurstSize:  10,
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
	}
}

func TestNewHTTPClient_Defaults(t *testing.T) {
	client := NewHTTPClient(HTTPClientConfig{})

	require.NotNil(t, client)
	assert.Equal(t, 30*time.Second, client.client.Timeout)
	assert.Equal(t, "arxivite-search/1.0", client.config.UserAgent)
	assert.Equal(t, 0, client.config.MaxRetries)
	assert.Equal(t, float64(3), client.config.RateLimit)
	assert.Equal(t, 3, client.config.BurstSize)
	assert.Equal(t, int64(10<<20), client.config.MaxBodyBytes)
}

func TestHTTPClient_Fetch(t *testing.T) {
	t.Run("returns body and sets User-Agent", func(t *testing.T) {
		var ua string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua = r.Header.Get("User-Agent")
			_, _ = w.Write([]byte("<feed/>"))
		}))
		defer server.Close()

		cfg := fastConfig()
		cfg.UserAgent = "TestAgent/2.0"
		resp, err := NewHTTPClient(cfg).Fetch(context.Background(), server.URL)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "<feed/>", string(resp.Body))
		assert.Equal(t, "TestAgent/2.0", ua)
	})

	t.Run("truncates body at limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("0123456789"))
		}))
		defer server.Close()

		cfg := fastConfig()
		cfg.MaxBodyBytes = 4
		resp, err := NewHTTPClient(cfg).Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "0123", string(resp.Body))
	})

	t.Run("passes through non-retryable status", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("bad"))
		}))
		defer server.Close()

		resp, err := NewHTTPClient(fastConfig()).Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestHTTPClient_Retries(t *testing.T) {
	t.Run("recovers after transient 503", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		resp, err := NewHTTPClient(fastConfig()).Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(resp.Body))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("exhausted 5xx wraps service unavailable", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := NewHTTPClient(fastConfig()).Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))

		var apiErr *domain.ExternalAPIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("exhausted 429 is a rate limit error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := NewHTTPClient(fastConfig()).Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrRateLimited))
	})

	t.Run("429 pauses the shared limiter for Retry-After", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		client := NewHTTPClient(fastConfig())
		start := time.Now()
		resp, err := client.Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(resp.Body))
		assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		cfg := fastConfig()
		cfg.RetryDelay = time.Minute
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := NewHTTPClient(cfg).Fetch(ctx, server.URL)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}

func TestHTTPClient_RetryDelay(t *testing.T) {
	client := NewHTTPClient(fastConfig())

	resp := &http.Response{Header: http.Header{}}
	assert.Equal(t, 5*time.Millisecond, client.retryDelay(resp))

	resp.Header.Set("Retry-After", "2")
	assert.Equal(t, 2*time.Second, client.retryDelay(resp))

	resp.Header.Set("Retry-After", "garbage")
	assert.Equal(t, 5*time.Millisecond, client.retryDelay(resp))

	resp.Header.Set("Retry-After", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
	assert.Equal(t, maxRetryAfter, client.retryDelay(resp))

	resp.Header.Set("Retry-After", time.Now().Add(20*time.Second).UTC().Format(http.TimeFormat))
	assert.Greater(t, client.retryDelay(resp), 10*time.Second)
}
