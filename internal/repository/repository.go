// Package repository provides PostgreSQL persistence for search history and
// the telemetry system log.
//
// Repositories accept a DBTX, so the same type runs against the pool, inside
// database.DB.WithTransaction, or against a pgxmock pool in tests:
//
//	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
//	    return repository.NewPgSearchHistoryRepository(tx).Record(ctx, entry)
//	})
//
// All implementations are safe for concurrent use; pgxpool handles
// connection synchronization.
package repository

import (
	"github.com/arxivite/search-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// History listing limits.
const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// clampLimit normalizes a list limit to [1, maxListLimit].
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
