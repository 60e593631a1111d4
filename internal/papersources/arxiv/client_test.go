package arxiv

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxivite/search-service/internal/domain"
	"github.com/arxivite/search-service/internal/papersources"
	"github.com/arxivite/search-service/internal/telemetry"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (r *recordingEmitter) Emit(e telemetry.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(Config{
		BaseURL:    server.URL + "/api",
		RateLimit:  100,
		BurstSize:  10,
		MaxRetries: 1,
		RetryDelay: 5 * time.Millisecond,
	}, zerolog.Nop(), opts...)
}

func TestClient_Search_BuildsQuery(t *testing.T) {
	var got url.Values
	var path string
	emitter := &recordingEmitter{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		got = r.URL.Query()
		_, _ = w.Write(loadFixture(t, "feed.xml"))
	}, WithEmitter(emitter))

	result, err := client.Search(context.Background(), papersources.SearchParams{
		Query:      `au:"Jane Doe"`,
		Start:      100,
		MaxResults: 50,
		SortBy:     "submittedDate",
		SortOrder:  "descending",
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/query", path)
	assert.Equal(t, `au:"Jane Doe"`, got.Get("search_query"))
	assert.Equal(t, "100", got.Get("start"))
	assert.Equal(t, "50", got.Get("max_results"))
	assert.Equal(t, "submittedDate", got.Get("sortBy"))
	assert.Equal(t, "descending", got.Get("sortOrder"))

	require.Len(t, result.Papers, 2)
	assert.Equal(t, 48213, result.Metadata.TotalResults)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, telemetry.ComponentArxivAPI, emitter.events[0].Component)
	assert.Equal(t, `au:"Jane Doe"`, emitter.events[0].Metadata["query"])
}

func TestClient_Search_DefaultsAndOmittedSort(t *testing.T) {
	var got url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write(loadFixture(t, "feed.xml"))
	})

	_, err := client.Search(context.Background(), papersources.SearchParams{Query: "cat:cs.LG"})
	require.NoError(t, err)

	assert.Equal(t, "0", got.Get("start"))
	assert.Equal(t, "50", got.Get("max_results"))
	assert.False(t, got.Has("sortBy"))
	assert.False(t, got.Has("sortOrder"))
}

func TestClient_Search_ErrorDocumentIsQuerySyntaxError(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusBadRequest} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write(loadFixture(t, "error.xml"))
		})

		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "au:("})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrQuerySyntax), "status %d", status)

		var qerr *domain.QuerySyntaxError
		require.True(t, errors.As(err, &qerr))
		assert.Equal(t, "unable to parse search_query", qerr.Message)
	}
}

func TestClient_Search_NonOKStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such endpoint"))
	})

	_, err := client.Search(context.Background(), papersources.SearchParams{Query: "x"})
	require.Error(t, err)

	var apiErr *domain.ExternalAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "no such endpoint", apiErr.Message)
	assert.False(t, errors.Is(err, domain.ErrQuerySyntax))
}

func TestClient_Search_UndecodableBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<<<garbage"))
	})

	_, err := client.Search(context.Background(), papersources.SearchParams{Query: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedFeed))
}

func TestClient_Search_ServerErrorAfterRetries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Search(context.Background(), papersources.SearchParams{Query: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
}

func TestClient_Name(t *testing.T) {
	assert.Equal(t, "arXiv", New(Config{}, zerolog.Nop()).Name())
}
