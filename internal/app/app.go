// Package app assembles the search pipeline from configuration. The HTTP
// server and the command line client share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/arxivite/search-service/internal/cache"
	"github.com/arxivite/search-service/internal/config"
	"github.com/arxivite/search-service/internal/database"
	"github.com/arxivite/search-service/internal/domain"
	"github.com/arxivite/search-service/internal/interpret"
	"github.com/arxivite/search-service/internal/llm"
	"github.com/arxivite/search-service/internal/observability"
	"github.com/arxivite/search-service/internal/papersources/arxiv"
	"github.com/arxivite/search-service/internal/repository"
	"github.com/arxivite/search-service/internal/search"
	"github.com/arxivite/search-service/internal/telemetry"
)

// IntentStore is the interpreter cache plus the purge hook the API exposes.
type IntentStore interface {
	interpret.IntentStore
	Purge() error
}

// App holds the wired pipeline and everything that must be closed with it.
type App struct {
	Config      *config.Config
	Metrics     *observability.Metrics
	DB          *database.DB
	History     *repository.PgSearchHistoryRepository
	Logs        *repository.PgLogRepository
	Intents     IntentStore
	Interpreter *interpret.Interpreter
	Search      *search.Orchestrator
	Dispatcher  *telemetry.Dispatcher

	logger  zerolog.Logger
	closers []io.Closer
}

// Options tune what Build wires.
type Options struct {
	// Registerer receives the service metrics. Nil disables metrics.
	Registerer prometheus.Registerer
	// SkipMigrations keeps Build from applying migrations even when
	// database.migration_auto_run is set.
	SkipMigrations bool
}

// Build wires the pipeline described by cfg. The caller must Close the
// returned App.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (_ *App, err error) {
	a := &App{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	if opts.Registerer != nil && cfg.Metrics.Enabled {
		a.Metrics = observability.NewMetricsWithRegisterer(cfg.Metrics.Namespace, opts.Registerer)
	}

	if cfg.Database.Enabled {
		if err := a.connectDatabase(ctx, opts.SkipMigrations); err != nil {
			return nil, err
		}
	}

	sinks, err := a.telemetrySinks()
	if err != nil {
		return nil, err
	}
	a.Dispatcher = telemetry.NewDispatcher(telemetry.DispatcherConfig{
		BufferSize:  cfg.Telemetry.BufferSize,
		SinkTimeout: cfg.Telemetry.SinkTimeout,
	}, logger, dropRecorder(a.Metrics), sinks...)

	if a.Intents, err = a.openIntentStore(); err != nil {
		return nil, err
	}

	completer, err := newCompleter(&cfg.LLM)
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		logger.Warn().Str("provider", cfg.LLM.Provider).
			Msg("no LLM credential configured; queries will search as plain text")
		completer = nil
	case err != nil:
		return nil, fmt.Errorf("create completer: %w", err)
	}

	interpreterOpts := []interpret.Option{
		interpret.WithStore(a.Intents),
		interpret.WithEmitter(a.Dispatcher),
		interpret.WithMaxTokens(cfg.LLM.MaxTokens),
	}
	if a.Metrics != nil {
		interpreterOpts = append(interpreterOpts, interpret.WithMetrics(a.Metrics))
	}
	a.Interpreter = interpret.New(completer, logger, interpreterOpts...)

	source := arxiv.New(arxiv.Config{
		BaseURL:    cfg.ArXiv.BaseURL,
		Timeout:    cfg.ArXiv.Timeout,
		RateLimit:  cfg.ArXiv.RateLimit,
		BurstSize:  cfg.ArXiv.BurstSize,
		MaxRetries: cfg.ArXiv.MaxRetries,
		RetryDelay: cfg.ArXiv.RetryDelay,
		UserAgent:  cfg.ArXiv.UserAgent,
	}, logger, arxiv.WithEmitter(a.Dispatcher))

	searchOpts := []search.Option{
		search.WithResultCache(cache.NewResultCache(cfg.Search.ResultCacheSize, cfg.Search.ResultTTL)),
		search.WithTracker(search.NewTracker(cfg.Search.TrackedSessions)),
		search.WithEmitter(a.Dispatcher),
	}
	if a.History != nil {
		searchOpts = append(searchOpts, search.WithHistory(a.History))
	}
	if a.Metrics != nil {
		searchOpts = append(searchOpts, search.WithMetrics(a.Metrics))
	}
	a.Search = search.New(source, a.Interpreter, logger, searchOpts...)

	return a, nil
}

func (a *App) connectDatabase(ctx context.Context, skipMigrations bool) error {
	db, err := database.New(ctx, &a.Config.Database, a.logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.DB = db

	if a.Config.Database.MigrationAutoRun && !skipMigrations {
		migrator, err := database.NewMigrator(db, a.Config.Database.MigrationPath, a.logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		upErr := migrator.Up()
		if closeErr := migrator.Close(); closeErr != nil {
			a.logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
		if upErr != nil {
			return fmt.Errorf("run migrations: %w", upErr)
		}
	}

	a.History = repository.NewPgSearchHistoryRepository(db)
	a.Logs = repository.NewPgLogRepository(db)
	return nil
}

func (a *App) telemetrySinks() ([]telemetry.Sink, error) {
	cfg := a.Config
	var sinks []telemetry.Sink

	if cfg.Telemetry.HasSink(config.SinkLog) {
		sinks = append(sinks, telemetry.NewLogSink(a.logger))
	}
	if cfg.Telemetry.HasSink(config.SinkPostgres) {
		if a.Logs == nil {
			return nil, errors.New("postgres telemetry sink requires database.enabled")
		}
		sinks = append(sinks, telemetry.NewPostgresSink(a.Logs))
	}
	if cfg.Telemetry.HasSink(config.SinkKafka) {
		k := telemetry.NewKafkaSink(telemetry.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		})
		a.closers = append(a.closers, k)
		sinks = append(sinks, k)
	}
	return sinks, nil
}

func (a *App) openIntentStore() (IntentStore, error) {
	s := a.Config.Search
	if s.IntentStore != config.IntentStoreLevelDB {
		return cache.NewMemoryIntentStore(s.IntentCacheSize), nil
	}
	store, err := cache.OpenLevelDBIntentStore(s.IntentStorePath, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open intent store: %w", err)
	}
	a.closers = append(a.closers, store)
	return store, nil
}

// Close flushes telemetry and releases every resource Build opened.
func (a *App) Close(ctx context.Context) {
	if a.Dispatcher != nil {
		if err := a.Dispatcher.Close(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("telemetry flush interrupted")
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error().Err(err).Msg("failed to close resource")
		}
	}
	a.closers = nil
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
	}
}

func newCompleter(cfg *config.LLMConfig) (llm.Completer, error) {
	return llm.NewCompleter(llm.FactoryConfig{
		Provider:    cfg.Provider,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		MaxRetries:  cfg.MaxRetries,
		Gemini: llm.GeminiConfig{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		},
		OpenAI: llm.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		},
		Anthropic: llm.AnthropicConfig{
			APIKey:  cfg.Anthropic.APIKey,
			Model:   cfg.Anthropic.Model,
			BaseURL: cfg.Anthropic.BaseURL,
		},
	})
}

// dropRecorder avoids handing the dispatcher a typed nil.
func dropRecorder(m *observability.Metrics) telemetry.DropRecorder {
	if m == nil {
		return nil
	}
	return m
}
