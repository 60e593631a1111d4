// Package cache holds the in-process stores used by the search pipeline:
// a TTL-bounded result cache keyed by request shape, and intent stores
// (memory LRU or LevelDB) used by the query interpreter.
package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/arxivite/search-service/internal/domain"
)

const (
	// DefaultResultTTL is how long a search response stays servable.
	DefaultResultTTL = 30 * time.Minute
	// DefaultResultSize bounds the number of cached responses.
	DefaultResultSize = 512
)

// ResultCache maps a request key to the papers and metadata of a completed
// search. Entries older than the TTL are treated as absent.
// It is safe for concurrent use.
type ResultCache struct {
	lru *expirable.LRU[string, domain.CacheEntry]
	ttl time.Duration
	now func() time.Time
}

// NewResultCache creates a result cache. Non-positive arguments use the defaults.
func NewResultCache(size int, ttl time.Duration) *ResultCache {
	if size <= 0 {
		size = DefaultResultSize
	}
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &ResultCache{
		lru: expirable.NewLRU[string, domain.CacheEntry](size, nil, ttl),
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the entry for key if present and younger than the TTL.
func (c *ResultCache) Get(key string) (domain.CacheEntry, bool) {
	entry, ok := c.lru.Get(key)
	if !ok {
		return domain.CacheEntry{}, false
	}
	if c.now().Sub(entry.StoredAt) >= c.ttl {
		c.lru.Remove(key)
		return domain.CacheEntry{}, false
	}
	return entry, true
}

// Set stores papers and metadata under key, replacing any previous entry.
func (c *ResultCache) Set(key string, papers []domain.PaperRecord, metadata domain.SearchMetadata) {
	c.put(domain.CacheEntry{Key: key, Papers: papers, Metadata: metadata})
}

// SetResult stores a completed search, keeping its resolution path and
// resolved query alongside the page.
func (c *ResultCache) SetResult(key string, res *domain.SearchResult) {
	c.put(domain.CacheEntry{
		Key:      key,
		Papers:   res.Papers,
		Metadata: res.Metadata,
		Path:     res.Path,
		Query:    res.Query,
	})
}

func (c *ResultCache) put(entry domain.CacheEntry) {
	stored := make([]domain.PaperRecord, len(entry.Papers))
	copy(stored, entry.Papers)
	entry.Papers = stored
	entry.StoredAt = c.now()
	c.lru.Add(entry.Key, entry)
}

// Clear drops every entry.
func (c *ResultCache) Clear() {
	c.lru.Purge()
}

// Len returns the number of entries, including any not yet evicted.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// RequestKey builds the cache key for a search request. Two requests share a
// key only when query text (case and surrounding space aside), page, page
// size and sort all match.
func RequestKey(req domain.SearchRequest) string {
	return fmt.Sprintf("%s|p=%d|n=%d|s=%s:%s",
		strings.ToLower(strings.TrimSpace(req.Query)),
		req.Pagination.Page,
		req.Pagination.PageSize,
		req.Sort.Field,
		req.Sort.Order,
	)
}
