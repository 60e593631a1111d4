package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/arxivite/search-service/internal/domain"
	"github.com/arxivite/search-service/internal/observability"
	"github.com/arxivite/search-service/internal/query"
)

const maxRequestBodySize = 64 << 10

// searchGet handles GET /api/v1/search?q=&page=&pageSize=&sort=&order=.
func (s *Server) searchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := domain.SearchRequest{
		Query: q.Get("q"),
		Sort: domain.Sort{
			Field: domain.SortField(q.Get("sort")),
			Order: domain.SortOrder(q.Get("order")),
		},
	}

	var ok bool
	if req.Pagination.Page, ok = intParam(w, q.Get("page"), "page"); !ok {
		return
	}
	if req.Pagination.PageSize, ok = intParam(w, q.Get("pageSize"), "pageSize"); !ok {
		return
	}

	s.runSearch(w, r, req)
}

// searchPost handles POST /api/v1/search with a JSON body.
func (s *Server) searchPost(w http.ResponseWriter, r *http.Request) {
	var body searchBody
	if !decodeBody(w, r, &body) {
		return
	}
	s.runSearch(w, r, body.request())
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req domain.SearchRequest) {
	session := r.Header.Get(SessionHeader)
	res, err := s.searcher.SearchSession(r.Context(), session, req)
	if err != nil {
		logger := observability.LoggerFromContext(r.Context(), s.logger)
		logger.Debug().
			Err(err).
			Str("query", req.Query).
			Msg("search returned error")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// listHistory handles GET /api/v1/search/history?limit=.
func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "search history is not enabled")
		return
	}
	limit, ok := intParam(w, r.URL.Query().Get("limit"), "limit")
	if !ok {
		return
	}

	entries, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list search history")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Entries: entries, Count: len(entries)})
}

// interpret handles POST /api/v1/interpret. It previews the structured
// intent and the query it compiles to without contacting arXiv.
func (s *Server) interpret(w http.ResponseWriter, r *http.Request) {
	var body interpretBody
	if !decodeBody(w, r, &body) {
		return
	}
	raw := strings.TrimSpace(body.Query)
	if raw == "" {
		writeDomainError(w, domain.NewValidationError("query", "is required"))
		return
	}

	intent := s.interpreter.Interpret(r.Context(), raw).Normalize()
	writeJSON(w, http.StatusOK, interpretResponse{
		Query:         raw,
		Intent:        intent,
		CompiledQuery: query.Compile(intent),
		Empty:         intent.IsEmpty(),
	})
}

// clearCache handles DELETE /api/v1/cache. Results are always dropped;
// ?intents=true also purges the interpreter store. Nothing is cleared when
// the intent purge cannot be done.
func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	purge, _ := strconv.ParseBool(r.URL.Query().Get("intents"))
	if purge && s.intents == nil {
		writeError(w, http.StatusNotImplemented, "intent store cannot be purged")
		return
	}

	var resp clearCacheResponse
	if purge {
		if err := s.intents.Purge(); err != nil {
			s.logger.Error().Err(err).Msg("failed to purge intent store")
			writeError(w, http.StatusInternalServerError, "failed to purge intent store")
			return
		}
		resp.Intents = true
	}
	s.searcher.ClearCache()
	resp.Results = true

	s.logger.Info().Bool("intents", resp.Intents).Msg("caches cleared")
	writeJSON(w, http.StatusOK, resp)
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message, Field: ve.Field})
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrSuperseded):
		writeError(w, http.StatusConflict, "search superseded by a newer request")
	case errors.Is(err, domain.ErrCancelled):
		writeError(w, http.StatusConflict, "search cancelled")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrSearchFailed):
		writeError(w, http.StatusBadGateway, "search failed")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if len(body) > maxRequestBodySize {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

// intParam parses an optional non-negative integer parameter. An empty
// value yields zero, which the request defaults replace.
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "must be a non-negative integer", Field: name})
		return 0, false
	}
	return n, true
}
