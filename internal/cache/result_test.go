package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxivite/search-service/internal/domain"
)

func samplePapers() []domain.PaperRecord {
	return []domain.PaperRecord{
		{ID: "2101.00001v1", Title: "First"},
		{ID: "2101.00002v2", Title: "Second"},
	}
}

func TestResultCache_SetGet(t *testing.T) {
	c := NewResultCache(0, 0)
	meta := domain.SearchMetadata{TotalResults: 2, ItemsPerPage: 50}

	c.Set("k", samplePapers(), meta)

	entry, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "k", entry.Key)
	assert.Len(t, entry.Papers, 2)
	assert.Equal(t, meta, entry.Metadata)
	assert.Equal(t, 1, c.Len())

	_, ok = c.Get("other")
	assert.False(t, ok)
}

func TestResultCache_SetCopiesPapers(t *testing.T) {
	c := NewResultCache(0, 0)
	papers := samplePapers()

	c.Set("k", papers, domain.SearchMetadata{})
	papers[0].Title = "mutated"

	entry, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "First", entry.Papers[0].Title)
}

func TestResultCache_SetResult(t *testing.T) {
	c := NewResultCache(0, 0)

	c.SetResult("k", &domain.SearchResult{
		Papers:   samplePapers(),
		Metadata: domain.SearchMetadata{TotalResults: 2},
		Path:     domain.PathEmptyRelax,
		Query:    `(au:"Jane Doe" OR all:"Jane Doe")`,
	})

	entry, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, domain.PathEmptyRelax, entry.Path)
	assert.Equal(t, `(au:"Jane Doe" OR all:"Jane Doe")`, entry.Query)
	assert.Len(t, entry.Papers, 2)
}

func TestResultCache_StaleEntryIsAbsent(t *testing.T) {
	c := NewResultCache(0, time.Minute)
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Set("k", samplePapers(), domain.SearchMetadata{})

	clock = clock.Add(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock = clock.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestResultCache_LastWriteWins(t *testing.T) {
	c := NewResultCache(0, 0)

	c.Set("k", samplePapers(), domain.SearchMetadata{TotalResults: 1})
	c.Set("k", samplePapers()[:1], domain.SearchMetadata{TotalResults: 9})

	entry, ok := c.Get("k")
	require.True(t, ok)
	assert.Len(t, entry.Papers, 1)
	assert.Equal(t, 9, entry.Metadata.TotalResults)
}

func TestResultCache_EvictsBeyondSize(t *testing.T) {
	c := NewResultCache(2, 0)

	c.Set("a", nil, domain.SearchMetadata{})
	c.Set("b", nil, domain.SearchMetadata{})
	c.Set("c", nil, domain.SearchMetadata{})

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestResultCache_Clear(t *testing.T) {
	c := NewResultCache(0, 0)
	c.Set("a", nil, domain.SearchMetadata{})
	c.Set("b", nil, domain.SearchMetadata{})

	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestRequestKey(t *testing.T) {
	base := domain.SearchRequest{
		Query:      "Quantum Error Correction",
		Pagination: domain.Pagination{Page: 1, PageSize: 50},
		Sort:       domain.Sort{Field: domain.SortSubmittedDate, Order: domain.SortDescending},
	}

	t.Run("normalizes case and surrounding space", func(t *testing.T) {
		other := base
		other.Query = "  quantum error correction "
		assert.Equal(t, RequestKey(base), RequestKey(other))
	})

	t.Run("distinguishes page", func(t *testing.T) {
		other := base
		other.Pagination.Page = 2
		assert.NotEqual(t, RequestKey(base), RequestKey(other))
	})

	t.Run("distinguishes page size", func(t *testing.T) {
		other := base
		other.Pagination.PageSize = 20
		assert.NotEqual(t, RequestKey(base), RequestKey(other))
	})

	t.Run("distinguishes sort", func(t *testing.T) {
		other := base
		other.Sort.Field = domain.SortTitle
		assert.NotEqual(t, RequestKey(base), RequestKey(other))

		other = base
		other.Sort.Order = domain.SortAscending
		assert.NotEqual(t, RequestKey(base), RequestKey(other))
	})
}
