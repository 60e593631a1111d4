package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/arxivite/search-service/internal/domain"
)

// DefaultIntentSize bounds the in-memory intent store.
const DefaultIntentSize = 4096

// MemoryIntentStore is a bounded LRU of interpreted intents keyed by
// normalized query text. Entries never expire on their own.
type MemoryIntentStore struct {
	lru *lru.Cache[string, domain.SearchIntent]
}

// NewMemoryIntentStore creates a store holding at most size intents.
// A non-positive size uses DefaultIntentSize.
func NewMemoryIntentStore(size int) *MemoryIntentStore {
	if size <= 0 {
		size = DefaultIntentSize
	}
	// lru.New only fails for a non-positive size.
	c, _ := lru.New[string, domain.SearchIntent](size)
	return &MemoryIntentStore{lru: c}
}

// Get returns a copy of the intent stored under key.
func (s *MemoryIntentStore) Get(key string) (domain.SearchIntent, bool) {
	intent, ok := s.lru.Get(key)
	if !ok {
		return domain.SearchIntent{}, false
	}
	return intent.Clone(), true
}

// Put stores a copy of intent under key.
func (s *MemoryIntentStore) Put(key string, intent domain.SearchIntent) {
	s.lru.Add(key, intent.Clone())
}

// Len returns the number of stored intents.
func (s *MemoryIntentStore) Len() int {
	return s.lru.Len()
}

// Purge drops every stored intent. It never fails.
func (s *MemoryIntentStore) Purge() error {
	s.lru.Purge()
	return nil
}
