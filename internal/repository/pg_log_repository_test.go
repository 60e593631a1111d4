package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxivite/search-service/internal/domain"
)

func TestPgLogRepository_InsertLog(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts row with generated id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgLogRepository(mock)
		entry := &domain.SystemLog{
			Level:     domain.LogLevelError,
			Component: "interpreter",
			Message:   "completion failed",
			Metadata:  map[string]any{"query": "spin glass"},
		}

		mock.ExpectExec(`INSERT INTO system_logs`).
			WithArgs(pgxmock.AnyArg(), "error", "interpreter", "completion failed",
				[]byte(`{"query":"spin glass"}`), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.InsertLog(ctx, entry))
		assert.NotEqual(t, uuid.Nil, entry.ID)
		assert.False(t, entry.CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("keeps supplied id and stores empty metadata object", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgLogRepository(mock)
		id := uuid.New()
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		entry := &domain.SystemLog{ID: id, Level: domain.LogLevelInfo, Component: "arxiv", CreatedAt: at}

		mock.ExpectExec(`INSERT INTO system_logs .* ON CONFLICT \(id\) DO NOTHING`).
			WithArgs(id, "info", "arxiv", "", []byte(`{}`), at).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		require.NoError(t, repo.InsertLog(ctx, entry))
		assert.Equal(t, id, entry.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects invalid entries without touching the database", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgLogRepository(mock)

		assert.ErrorIs(t, repo.InsertLog(ctx, nil), domain.ErrInvalidInput)
		assert.ErrorIs(t, repo.InsertLog(ctx, &domain.SystemLog{Level: domain.LogLevelInfo}), domain.ErrInvalidInput)
		assert.ErrorIs(t, repo.InsertLog(ctx, &domain.SystemLog{Level: "debug", Component: "x"}), domain.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps database errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgLogRepository(mock)
		dbErr := errors.New("connection reset")
		mock.ExpectExec(`INSERT INTO system_logs`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(dbErr)

		err = repo.InsertLog(ctx, &domain.SystemLog{Level: domain.LogLevelWarn, Component: "search"})
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to insert system log")
	})
}

func TestPgLogRepository_ListLogs(t *testing.T) {
	ctx := context.Background()

	t.Run("scans rows and metadata", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgLogRepository(mock)
		id := uuid.New()
		now := time.Now().UTC()

		mock.ExpectQuery(`SELECT id, level, component, message, metadata, created_at FROM system_logs`).
			WithArgs("arxiv", 10).
			WillReturnRows(pgxmock.NewRows([]string{"id", "level", "component", "message", "metadata", "created_at"}).
				AddRow(id, "warn", "arxiv", "slow response", []byte(`{"status":503}`), now))

		logs, err := repo.ListLogs(ctx, "arxiv", 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, id, logs[0].ID)
		assert.Equal(t, domain.LogLevelWarn, logs[0].Level)
		assert.Equal(t, float64(503), logs[0].Metadata["status"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clamps limit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgLogRepository(mock)
		mock.ExpectQuery(`FROM system_logs`).
			WithArgs("", maxListLimit).
			WillReturnRows(pgxmock.NewRows([]string{"id", "level", "component", "message", "metadata", "created_at"}))

		logs, err := repo.ListLogs(ctx, "", 10_000)
		require.NoError(t, err)
		assert.Empty(t, logs)
		assert.NotNil(t, logs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
