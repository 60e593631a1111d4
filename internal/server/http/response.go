package httpserver

import (
	"github.com/arxivite/search-service/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// searchBody is the POST /api/v1/search payload. It mirrors
// domain.SearchRequest with every field optional except the query.
type searchBody struct {
	Query      string             `json:"query"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
	Sort       *domain.Sort       `json:"sort,omitempty"`
}

func (b searchBody) request() domain.SearchRequest {
	req := domain.SearchRequest{Query: b.Query}
	if b.Pagination != nil {
		req.Pagination = *b.Pagination
	}
	if b.Sort != nil {
		req.Sort = *b.Sort
	}
	return req
}

type interpretBody struct {
	Query string `json:"query"`
}

type interpretResponse struct {
	Query         string              `json:"query"`
	Intent        domain.SearchIntent `json:"intent"`
	CompiledQuery string              `json:"compiled_query"`
	Empty         bool                `json:"empty"`
}

type historyResponse struct {
	Entries []*domain.SearchHistoryEntry `json:"entries"`
	Count   int                          `json:"count"`
}

type clearCacheResponse struct {
	Results bool `json:"results_cleared"`
	Intents bool `json:"intents_cleared"`
}
