// Package main provides the schema migration tool for the search history
// and telemetry tables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/arxivite/search-service/internal/config"
	"github.com/arxivite/search-service/internal/database"
	"github.com/arxivite/search-service/internal/observability"
)

type actionKind int

const (
	actionUp actionKind = iota + 1
	actionDown
	actionSteps
	actionStatus
	actionForce
)

type action struct {
	kind  actionKind
	steps int
	force int
	path  string
}

var errNoAction = errors.New("no action specified")

func main() {
	act, err := parseAction(os.Args[1:], os.Stderr)
	if err == nil {
		err = run(act)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// parseAction reads the command line. Exactly one of -up, -down, -steps,
// -status and -force must be given.
func parseAction(args []string, output io.Writer) (action, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(output)

	up := fs.Bool("up", false, "Run all pending migrations")
	down := fs.Bool("down", false, "Roll back all migrations")
	steps := fs.Int("steps", 0, "Run N migration steps (positive=up, negative=down)")
	status := fs.Bool("status", false, "Print the current migration version")
	force := fs.Int("force", -1, "Force set migration version (use to recover from failed migrations)")
	path := fs.String("path", "", "Override the migrations directory path")
	if err := fs.Parse(args); err != nil {
		return action{}, err
	}

	var chosen []actionKind
	if *up {
		chosen = append(chosen, actionUp)
	}
	if *down {
		chosen = append(chosen, actionDown)
	}
	if *steps != 0 {
		chosen = append(chosen, actionSteps)
	}
	if *status {
		chosen = append(chosen, actionStatus)
	}
	if *force >= 0 {
		chosen = append(chosen, actionForce)
	}

	switch len(chosen) {
	case 0:
		fs.Usage()
		fmt.Fprintln(output, "\nPlease specify one of: -up, -down, -steps N, -status, -force V")
		return action{}, errNoAction
	case 1:
		return action{kind: chosen[0], steps: *steps, force: *force, path: *path}, nil
	default:
		return action{}, errors.New("specify only one action at a time")
	}
}

func run(act action) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	})
	logger = logger.With().Str("component", "migrate").Logger()

	// The migrate tool is the one caller that connects regardless of
	// database.enabled.
	migrationDir := cfg.Database.MigrationPath
	if act.path != "" {
		migrationDir = act.path
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	switch act.kind {
	case actionUp:
		logger.Info().Msg("running all pending migrations")
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case actionDown:
		logger.Warn().Msg("rolling back all migrations")
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case actionSteps:
		logger.Info().Int("steps", act.steps).Msg("running migration steps")
		if err := migrator.Steps(act.steps); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}
	case actionForce:
		logger.Warn().Int("version", act.force).Msg("forcing migration version")
		if err := migrator.Force(act.force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	case actionStatus:
	default:
		return errNoAction
	}

	printStatus(migrator, logger)
	return nil
}

func printStatus(migrator *database.Migrator, logger zerolog.Logger) {
	st, err := migrator.Status()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", st.Version).
		Bool("dirty", st.Dirty).
		Bool("pristine", st.Pristine).
		Msg("current migration version")
}
