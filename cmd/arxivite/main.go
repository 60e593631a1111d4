// Package main provides the arxivite command line client. It runs the same
// search pipeline as the server without an HTTP hop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/arxivite/search-service/internal/config"
	"github.com/arxivite/search-service/internal/observability"
)

var Version = "dev"

type globalFlags struct {
	configPath string
	output     string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "arxivite",
		Short:         "Natural language search over arXiv",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := parseFormat(flags.output)
			return err
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flags.output, "output", "o", string(formatText), "output format (text, json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log pipeline activity to stderr")

	rootCmd.AddCommand(searchCmd(flags))
	rootCmd.AddCommand(interpretCmd(flags))
	rootCmd.AddCommand(compileCmd(flags))

	return rootCmd
}

func (f *globalFlags) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadFile(f.configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}

	level := "warn"
	if f.verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.Kitchen,
	})
	return cfg, logger.With().Str("component", "cli").Logger(), nil
}
