package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/arxivite/search-service/internal/domain"
)

const intentKeyPrefix = "intent:"

// LevelDBIntentStore persists interpreted intents on disk so repeated
// queries survive restarts. Values are JSON-encoded SearchIntent.
//
// Storage failures are logged and reported as a miss; the interpreter then
// asks the LLM again.
type LevelDBIntentStore struct {
	db     *leveldb.DB
	logger zerolog.Logger
}

// OpenLevelDBIntentStore opens (or creates) the database at path.
func OpenLevelDBIntentStore(path string, logger zerolog.Logger) (*LevelDBIntentStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open intent store %s: %w", path, err)
	}
	return &LevelDBIntentStore{
		db:     db,
		logger: logger.With().Str("component", "intent-store").Logger(),
	}, nil
}

// Get returns the intent stored under key.
func (s *LevelDBIntentStore) Get(key string) (domain.SearchIntent, bool) {
	intent, err := s.Lookup(key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Str("key", key).Msg("intent store read failed")
		}
		return domain.SearchIntent{}, false
	}
	return intent, true
}

// Lookup is Get with the underlying error exposed. A missing key returns
// domain.ErrNotFound.
func (s *LevelDBIntentStore) Lookup(key string) (domain.SearchIntent, error) {
	data, err := s.db.Get([]byte(intentKeyPrefix+key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return domain.SearchIntent{}, domain.ErrNotFound
		}
		return domain.SearchIntent{}, fmt.Errorf("read intent: %w", err)
	}

	var intent domain.SearchIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		return domain.SearchIntent{}, fmt.Errorf("decode intent: %w", err)
	}
	return intent.Normalize(), nil
}

// Put stores intent under key.
func (s *LevelDBIntentStore) Put(key string, intent domain.SearchIntent) {
	data, err := json.Marshal(intent.Normalize())
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("intent encode failed")
		return
	}
	if err := s.db.Put([]byte(intentKeyPrefix+key), data, nil); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("intent store write failed")
	}
}

// Purge deletes every stored intent in one batch.
func (s *LevelDBIntentStore) Purge() error {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(intentKeyPrefix)), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("scan intents: %w", err)
	}
	return s.db.Write(batch, nil)
}

// Close releases the database.
func (s *LevelDBIntentStore) Close() error {
	return s.db.Close()
}
