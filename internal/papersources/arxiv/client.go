// Package arxiv implements the arXiv export API client and the Atom response
// transformer.
package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/arxivite/search-service/internal/domain"
	"github.com/arxivite/search-service/internal/papersources"
	"github.com/arxivite/search-service/internal/telemetry"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit is the default rate limit (3 requests per second).
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the page size used when a request names none.
	DefaultMaxResults = domain.PageSizeDefault

	// DefaultMaxRetries is the number of retries for 429 and 5xx responses.
	DefaultMaxRetries = 2

	sourceName = "arXiv"
)

// Config holds configuration for the arXiv client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	BurstSize  int
	MaxRetries int
	RetryDelay time.Duration
	MaxResults int
	UserAgent  string
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements papersources.PaperSource for arXiv.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	emitter    telemetry.Emitter
	logger     zerolog.Logger
}

var _ papersources.PaperSource = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithEmitter sends a request event for every query issued.
func WithEmitter(e telemetry.Emitter) Option {
	return func(c *Client) { c.emitter = e }
}

// WithHTTPClient replaces the rate-limited transport.
func WithHTTPClient(h *papersources.HTTPClient) Option {
	return func(c *Client) { c.httpClient = h }
}

// New creates a new arXiv client with the given configuration.
func New(cfg Config, logger zerolog.Logger, opts ...Option) *Client {
	cfg.applyDefaults()

	c := &Client{
		config:  cfg,
		emitter: telemetry.Nop(),
		logger:  logger.With().Str("component", "arxiv_client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Source:     sourceName,
			Timeout:    cfg.Timeout,
			RateLimit:  cfg.RateLimit,
			BurstSize:  cfg.BurstSize,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
			UserAgent:  cfg.UserAgent,
		})
	}
	return c
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// Search runs one query against the export API. An error document for an
// unparseable query is returned as a *domain.QuerySyntaxError regardless of
// the HTTP status it arrived with.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	started := time.Now()

	searchURL, values, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	c.emitter.Emit(telemetry.RequestEvent(params.Query, map[string]any{
		"start":       values.Get("start"),
		"max_results": values.Get("max_results"),
		"sortBy":      values.Get("sortBy"),
		"sortOrder":   values.Get("sortOrder"),
	}))

	resp, err := c.httpClient.Fetch(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	feed, decodeErr := decodeFeed(resp.Body)
	if decodeErr == nil {
		if msg, ok := feed.queryError(); ok {
			return nil, domain.NewQuerySyntaxError(sourceName, params.Query, msg)
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, truncate(string(resp.Body), 512), nil)
	}
	if decodeErr != nil {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, "undecodable response", decodeErr)
	}

	result := &papersources.SearchResult{
		Papers:   feed.records(),
		Metadata: feed.metadata(),
		Duration: time.Since(started),
	}

	c.logger.Debug().
		Str("query", params.Query).
		Int("start", params.Start).
		Int("returned", len(result.Papers)).
		Int("total_results", result.Metadata.TotalResults).
		Dur("duration", result.Duration).
		Msg("arXiv search completed")

	return result, nil
}

func (c *Client) buildSearchURL(params papersources.SearchParams) (string, url.Values, error) {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", nil, fmt.Errorf("parsing base URL: %w", err)
	}
	base.Path = strings.TrimRight(base.Path, "/") + "/query"

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}
	start := params.Start
	if start < 0 {
		start = 0
	}

	values := url.Values{}
	values.Set("search_query", params.Query)
	values.Set("start", strconv.Itoa(start))
	values.Set("max_results", strconv.Itoa(maxResults))
	if params.SortBy != "" {
		values.Set("sortBy", params.SortBy)
	}
	if params.SortOrder != "" {
		values.Set("sortOrder", params.SortOrder)
	}

	base.RawQuery = values.Encode()
	return base.String(), values, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
