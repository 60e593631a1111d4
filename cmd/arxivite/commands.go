package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arxivite/search-service/internal/app"
	"github.com/arxivite/search-service/internal/domain"
	"github.com/arxivite/search-service/internal/interpret"
	"github.com/arxivite/search-service/internal/query"
)

func searchCmd(flags *globalFlags) *cobra.Command {
	var (
		page     int
		pageSize int
		sortBy   string
		order    string
	)

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search arXiv with a natural language query",
		Long: `Interpret the query, compile it to arXiv syntax and fetch one page of
results, falling back to a plain-text search when needed.

Examples:
  arxivite search "papers by Yann LeCun on self-supervised learning since 2020"
  arxivite search "au:Hinton AND ti:capsule" --sort submittedDate
  arxivite search graph neural networks -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, _ := parseFormat(flags.output)
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := app.Build(ctx, cfg, logger, app.Options{SkipMigrations: true})
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			res, err := a.Search.Search(ctx, domain.SearchRequest{
				Query:      strings.Join(args, " "),
				Pagination: domain.Pagination{Page: page, PageSize: pageSize},
				Sort:       domain.Sort{Field: domain.SortField(sortBy), Order: domain.SortOrder(order)},
			})
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if f == formatText {
				return writeSearchText(cmd.OutOrStdout(), res)
			}
			return encode(cmd.OutOrStdout(), f, res)
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 0, "zero-based page number")
	cmd.Flags().IntVarP(&pageSize, "page-size", "n", 0, "results per page (20, 50 or 100)")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort field (relevance, submittedDate, lastUpdatedDate, title)")
	cmd.Flags().StringVar(&order, "order", "", "sort order (ascending, descending)")

	return cmd
}

func interpretCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "interpret [query...]",
		Short: "Show the structured intent and compiled arXiv query without searching",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, _ := parseFormat(flags.output)
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}

			a, err := app.Build(cmd.Context(), cfg, logger, app.Options{SkipMigrations: true})
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			raw := strings.Join(args, " ")
			intent := a.Interpreter.Interpret(cmd.Context(), raw).Normalize()
			return writeIntent(cmd.OutOrStdout(), f, raw, intent)
		},
	}
}

func compileCmd(flags *globalFlags) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "compile [intent-json]",
		Short: "Compile an intent JSON document to arXiv query syntax",
		Long: `Compile reads an intent in the interpreter's JSON shape, from the
argument, --file, or stdin, and prints the arXiv query it compiles to.

Example:
  arxivite compile '{"authors":["Geoffrey Hinton"],"topics":["capsule networks"]}'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, _ := parseFormat(flags.output)
			text, err := readIntentInput(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}
			intent, err := interpret.ParseIntent(text)
			if err != nil {
				return fmt.Errorf("parse intent: %w", err)
			}
			return writeIntent(cmd.OutOrStdout(), f, "", intent)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the intent from a file")
	return cmd
}

type intentOutput struct {
	Query         string              `json:"query,omitempty"`
	Intent        domain.SearchIntent `json:"intent"`
	CompiledQuery string              `json:"compiled_query"`
}

func writeIntent(w io.Writer, f format, raw string, intent domain.SearchIntent) error {
	compiled := query.Compile(intent)
	if f == formatText {
		if raw == "" {
			_, err := fmt.Fprintln(w, compiled)
			return err
		}
		return writeIntentText(w, raw, intent, compiled)
	}
	return encode(w, f, intentOutput{Query: raw, Intent: intent, CompiledQuery: compiled})
}

func readIntentInput(stdin io.Reader, file string, args []string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", fmt.Errorf("give the intent as an argument or with --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read intent file: %w", err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read intent from stdin: %w", err)
		}
		return string(data), nil
	}
}
