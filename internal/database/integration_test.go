//go:build integration

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("arxivite"),
		postgres.WithUsername("arxivite"),
		postgres.WithPassword("arxivite"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewFromPool(pool, zerolog.Nop())
}

func migrationsDir() string {
	return filepath.Join("..", "..", "migrations")
}

func TestMigrator_Lifecycle(t *testing.T) {
	db := startPostgres(t)

	m, err := NewMigrator(db, migrationsDir(), zerolog.Nop())
	require.NoError(t, err)
	defer m.Close()

	status, err := m.Status()
	require.NoError(t, err)
	assert.True(t, status.Pristine)

	require.NoError(t, m.Up())
	status, err = m.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(2), status.Version)
	assert.False(t, status.Dirty)

	// Second Up is a no-op.
	require.NoError(t, m.Up())

	require.NoError(t, m.Steps(-1))
	status, err = m.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(1), status.Version)

	require.NoError(t, m.Down())
	status, err = m.Status()
	require.NoError(t, err)
	assert.True(t, status.Pristine)
}

func TestDB_HealthAndTransaction(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	health := db.Health(ctx)
	assert.True(t, health.Healthy())

	_, err := db.Exec(ctx, `CREATE TABLE tx_probe (n INT)`)
	require.NoError(t, err)

	require.NoError(t, db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO tx_probe VALUES (1)`)
		return err
	}))

	boom := errors.New("boom")
	err = db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO tx_probe VALUES (2)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Panics(t, func() {
		_ = db.WithTransaction(ctx, func(tx pgx.Tx) error {
			_, _ = tx.Exec(ctx, `INSERT INTO tx_probe VALUES (3)`)
			panic("bad")
		})
	})

	var count int
	qctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, db.QueryRow(qctx, `SELECT COUNT(*) FROM tx_probe`).Scan(&count))
	assert.Equal(t, 1, count)
}
