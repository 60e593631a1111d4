package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/arxivite/search-service/internal/domain"
)

const stubFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <opensearch:totalResults>1</opensearch:totalResults>
  <opensearch:startIndex>0</opensearch:startIndex>
  <opensearch:itemsPerPage>20</opensearch:itemsPerPage>
  <entry>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <updated>2024-01-02T00:00:00Z</updated>
    <published>2024-01-01T00:00:00Z</published>
    <title>Graph Transformers</title>
    <summary>A survey.</summary>
    <author><name>Ada Lovelace</name></author>
    <link href="http://arxiv.org/abs/2401.00001v1" rel="alternate" type="text/html"/>
    <arxiv:primary_category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
</feed>`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, arxivURL string) string {
	t.Helper()
	t.Setenv("ARXIVITE_LLM_GEMINI_API_KEY", "")
	t.Setenv("ARXIVITE_LLM_PROVIDER", "")
	t.Setenv("ARXIVITE_DATABASE_ENABLED", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := fmt.Sprintf("arxiv:\n  base_url: %q\n  rate_limit: 100\n  burst: 10\n", arxivURL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCompileCommand(t *testing.T) {
	intent := `{"topics":["capsule networks"],"arxiv_categories":["cs.LG"]}`

	t.Run("text from argument", func(t *testing.T) {
		out, err := execute(t, "", "compile", intent)
		require.NoError(t, err)
		assert.Equal(t, `(all:"capsule networks") AND (cat:cs.LG)`+"\n", out)
	})

	t.Run("json from stdin", func(t *testing.T) {
		out, err := execute(t, intent, "compile", "-o", "json")
		require.NoError(t, err)

		var got intentOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, `(all:"capsule networks") AND (cat:cs.LG)`, got.CompiledQuery)
		assert.Equal(t, []string{"cs.LG"}, got.Intent.Categories)
	})

	t.Run("yaml from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "intent.json")
		require.NoError(t, os.WriteFile(path, []byte(intent), 0o600))

		out, err := execute(t, "", "compile", "--file", path, "--output", "yaml")
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		assert.Equal(t, `(all:"capsule networks") AND (cat:cs.LG)`, got["compiled_query"])
	})

	t.Run("not json", func(t *testing.T) {
		_, err := execute(t, "", "compile", "capsule networks")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse intent")
	})

	t.Run("argument and file", func(t *testing.T) {
		_, err := execute(t, "", "compile", intent, "--file", "x.json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not both")
	})
}

func TestRootCommand_RejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "", "compile", "{}", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestSearchCommand(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(stubFeed))
	}))
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, "", "--config", cfgPath, "search", "graph", "transformers")
		require.NoError(t, err)
		assert.Contains(t, out, "1. Graph Transformers (2024)")
		assert.Contains(t, out, "Ada Lovelace | cs.LG")
		assert.Contains(t, out, string(domain.PathLegacyFallback))
		assert.NotEmpty(t, gotQuery)
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "", "--config", cfgPath, "-o", "json", "search", "capsule", "networks")
		require.NoError(t, err)

		var res domain.SearchResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		require.Len(t, res.Papers, 1)
		assert.Equal(t, "2401.00001v1", res.Papers[0].ID)
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := execute(t, "", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "search", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load config")
	})
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]format{"": "", "text": formatText, "JSON": formatJSON, "yml": formatYAML, " yaml ": formatYAML} {
		got, err := parseFormat(in)
		if want == "" {
			assert.Error(t, err, in)
			continue
		}
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestWriteSearchText_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSearchText(&buf, &domain.SearchResult{Query: `all:"nothing"`, Papers: []domain.PaperRecord{}}))
	assert.Equal(t, "No results (query: all:\"nothing\")\n", buf.String())
}

func TestAuthorLine(t *testing.T) {
	assert.Equal(t, "A, B", authorLine([]string{"A", "B"}))
	assert.Equal(t, "A, B, C et al.", authorLine([]string{"A", "B", "C", "D"}))
}

func TestYearText(t *testing.T) {
	end := 2022
	assert.Equal(t, "2020-", yearText(&domain.YearRange{Start: 2020}))
	assert.Equal(t, "2020-2022", yearText(&domain.YearRange{Start: 2020, End: &end}))
}
