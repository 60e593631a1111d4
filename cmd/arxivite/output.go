package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/arxivite/search-service/internal/domain"
)

type format string

const (
	formatText format = "text"
	formatJSON format = "json"
	formatYAML format = "yaml"
)

func parseFormat(s string) (format, error) {
	switch f := format(strings.ToLower(strings.TrimSpace(s))); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	case "yml":
		return formatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want text, json or yaml)", s)
	}
}

// encode writes v as JSON or YAML. The YAML form goes through JSON first so
// both formats share the json tags and the Timestamp encoding.
func encode(w io.Writer, f format, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if f == formatJSON {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("convert output to yaml: %w", err)
	}
	clearStyle(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return enc.Close()
}

// clearStyle drops the flow style yaml keeps from the JSON source.
func clearStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	for _, c := range n.Content {
		clearStyle(c)
	}
}

func writeSearchText(w io.Writer, res *domain.SearchResult) error {
	if len(res.Papers) == 0 {
		_, err := fmt.Fprintf(w, "No results (query: %s)\n", res.Query)
		return err
	}

	fmt.Fprintf(w, "%d of %d results via %s\n", len(res.Papers), res.Metadata.TotalResults, res.Path)
	fmt.Fprintf(w, "query: %s\n\n", res.Query)

	for i, p := range res.Papers {
		n := res.Metadata.StartIndex + i + 1
		fmt.Fprintf(w, "%d. %s", n, p.Title)
		if p.Published.Valid {
			fmt.Fprintf(w, " (%d)", p.Published.Time.Year())
		}
		fmt.Fprintln(w)

		var meta []string
		if len(p.Authors) > 0 {
			meta = append(meta, authorLine(p.Authors))
		}
		if len(p.Categories) > 0 {
			meta = append(meta, strings.Join(p.Categories, ", "))
		}
		if len(meta) > 0 {
			fmt.Fprintf(w, "   %s\n", strings.Join(meta, " | "))
		}
		if p.Links.Abstract != "" {
			fmt.Fprintf(w, "   %s\n", p.Links.Abstract)
		}
	}
	return nil
}

func authorLine(authors []string) string {
	const shown = 3
	if len(authors) <= shown {
		return strings.Join(authors, ", ")
	}
	return fmt.Sprintf("%s et al.", strings.Join(authors[:shown], ", "))
}

func writeIntentText(w io.Writer, raw string, intent domain.SearchIntent, compiled string) error {
	fmt.Fprintf(w, "query:        %s\n", raw)
	writeList(w, "authors", intent.Authors)
	writeList(w, "topics", intent.Topics)
	if intent.YearRange != nil {
		fmt.Fprintf(w, "years:        %s\n", yearText(intent.YearRange))
	}
	writeList(w, "categories", intent.Categories)
	writeList(w, "institutions", intent.Institutions)
	if compiled == "" {
		_, err := fmt.Fprintln(w, "compiled:     (empty; searches as plain text)")
		return err
	}
	_, err := fmt.Fprintf(w, "compiled:     %s\n", compiled)
	return err
}

func writeList(w io.Writer, label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(w, "%-13s %s\n", label+":", strings.Join(values, "; "))
}

func yearText(yr *domain.YearRange) string {
	if yr.End == nil {
		return fmt.Sprintf("%d-", yr.Start)
	}
	return fmt.Sprintf("%d-%d", yr.Start, *yr.End)
}
