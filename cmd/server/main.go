// Command server runs the arxivite search HTTP API and its metrics endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arxivite/search-service/internal/app"
	"github.com/arxivite/search-service/internal/config"
	"github.com/arxivite/search-service/internal/observability"
	httpserver "github.com/arxivite/search-service/internal/server/http"
)

const idleTimeout = 2 * time.Minute

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
	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger, app.Options{Registerer: prometheus.DefaultRegisterer})
	if err != nil {
		return err
	}

	api := newAPIServer(cfg, a, logger)
	metrics := newMetricsServer(cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreClosed(api.Start(), "HTTP server")
	})
	if metrics != nil {
		g.Go(func() error {
			return ignoreClosed(metrics.ListenAndServe(), "metrics server")
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		errs := []error{api.Shutdown(shutdownCtx)}
		if metrics != nil {
			errs = append(errs, metrics.Shutdown(shutdownCtx))
		}
		// Queued telemetry is flushed before the pool closes.
		a.Close(shutdownCtx)
		return errors.Join(errs...)
	})

	ev := logger.Info().
		Str("http_address", cfg.Server.HTTPAddress()).
		Str("llm_provider", cfg.LLM.Provider).
		Bool("database", a.DB != nil).
		Strs("telemetry_sinks", cfg.Telemetry.Sinks)
	if metrics != nil {
		ev = ev.Str("metrics_address", metrics.Addr)
	}
	ev.Msg("arxivite search server ready")

	err = g.Wait()
	logger.Info().Err(err).Msg("server stopped")
	return err
}

func newLogger(lc config.LoggingConfig) zerolog.Logger {
	return observability.NewLogger(observability.LoggingConfig{
		Level:      lc.Level,
		Format:     lc.Format,
		Output:     lc.Output,
		AddSource:  lc.AddSource,
		TimeFormat: lc.TimeFormat,
	}).With().Str("component", "server").Logger()
}

func newAPIServer(cfg *config.Config, a *app.App, logger zerolog.Logger) *httpserver.Server {
	opts := []httpserver.Option{httpserver.WithIntentPurger(a.Intents)}
	if a.DB != nil {
		opts = append(opts, httpserver.WithHealthChecker(a.DB), httpserver.WithHistory(a.History))
	}
	return httpserver.NewServer(httpserver.Config{
		Address:      cfg.Server.HTTPAddress(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}, a.Search, a.Interpreter, logger, opts...)
}

// newMetricsServer returns nil when metrics are disabled.
func newMetricsServer(cfg *config.Config) *http.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	return &http.Server{
		Addr:              cfg.Server.MetricsAddress(),
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}
}

func ignoreClosed(err error, what string) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("%s: %w", what, err)
}
