// Package papersources holds the transport shared by paper provider clients:
// a rate-limited, retrying HTTP client and the provider-facing request types.
//
// A provider client turns SearchParams into one HTTP request and hands back
// normalized records:
//
//	client := arxiv.New(arxiv.Config{}, logger)
//	result, err := client.Search(ctx, papersources.SearchParams{
//		Query:      `au:"Jane Doe"`,
//		MaxResults: 50,
//		SortBy:     "submittedDate",
//		SortOrder:  "descending",
//	})
package papersources

import (
	"context"
	"time"

	"github.com/arxivite/search-service/internal/domain"
)

// SearchParams is a single provider request.
type SearchParams struct {
	// Query is the provider query expression, sent as-is.
	Query string

	// Start is the zero-based offset of the first result.
	Start int

	// MaxResults is the page size. Zero uses the client default.
	MaxResults int

	// SortBy and SortOrder are provider sort parameters. Empty values
	// omit the parameter.
	SortBy    string
	SortOrder string
}

// SearchResult is one decoded provider response.
type SearchResult struct {
	Papers   []domain.PaperRecord
	Metadata domain.SearchMetadata
	Duration time.Duration
}

// PaperSource is implemented by provider clients.
type PaperSource interface {
	// Search executes one request. Unparseable queries surface as errors
	// wrapping domain.ErrQuerySyntax.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// Name identifies the provider in logs, metrics and telemetry.
	Name() string
}
