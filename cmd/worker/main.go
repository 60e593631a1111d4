// Package main provides the telemetry relay worker. It consumes events the
// search server publishes to Kafka and stores them in system_logs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arxivite/search-service/internal/config"
	"github.com/arxivite/search-service/internal/database"
	"github.com/arxivite/search-service/internal/observability"
	"github.com/arxivite/search-service/internal/repository"
	"github.com/arxivite/search-service/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := checkRelayConfig(cfg); err != nil {
		return err
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("arxivite telemetry worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		upErr := migrator.Up()
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
		if upErr != nil {
			return fmt.Errorf("run migrations: %w", upErr)
		}
	}

	relay := telemetry.NewRelay(telemetry.RelayConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	}, telemetry.NewPostgresSink(repository.NewPgLogRepository(db)), logger)
	defer func() {
		if err := relay.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close telemetry relay")
		}
	}()

	logger.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.Topic).
		Str("group_id", cfg.Kafka.GroupID).
		Msg("arxivite telemetry worker is ready")

	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("telemetry relay: %w", err)
	}

	logger.Info().Msg("arxivite telemetry worker shutdown complete")
	return nil
}

// checkRelayConfig rejects configurations the relay cannot run with.
func checkRelayConfig(cfg *config.Config) error {
	if !cfg.Database.Enabled {
		return errors.New("worker requires database.enabled")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("worker requires kafka.brokers")
	}
	if cfg.Kafka.Topic == "" {
		return errors.New("worker requires kafka.topic")
	}
	if cfg.Kafka.GroupID == "" {
		return errors.New("worker requires kafka.group_id")
	}
	return nil
}
