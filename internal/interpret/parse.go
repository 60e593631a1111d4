package interpret

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/arxivite/search-service/internal/domain"
)

// ErrNoJSONObject is returned when a completion contains no JSON object.
var ErrNoJSONObject = errors.New("completion contains no JSON object")

type rawIntent struct {
	Authors      json.RawMessage `json:"authors"`
	Topics       json.RawMessage `json:"topics"`
	YearRange    json.RawMessage `json:"year_range"`
	Categories   json.RawMessage `json:"arxiv_categories"`
	Institutions json.RawMessage `json:"institutions"`
}

// ParseIntent decodes a completion into a SearchIntent. Fields that are not
// arrays become empty, a malformed year_range is dropped, and author names
// are normalized.
func ParseIntent(text string) (domain.SearchIntent, error) {
	body, err := extractJSON(text)
	if err != nil {
		return domain.NewSearchIntent(), err
	}

	var raw rawIntent
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return domain.NewSearchIntent(), fmt.Errorf("decode intent: %w", err)
	}

	intent := domain.SearchIntent{
		Authors:      NormalizeAuthors(stringList(raw.Authors)),
		Topics:       stringList(raw.Topics),
		YearRange:    yearRange(raw.YearRange),
		Categories:   stringList(raw.Categories),
		Institutions: stringList(raw.Institutions),
	}
	return intent.Normalize(), nil
}

// extractJSON strips a markdown fence and any prose around the outermost
// JSON object.
func extractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", ErrNoJSONObject
	}
	return s[start : end+1], nil
}

// stringList returns the trimmed, non-empty strings of a JSON array.
// Anything else yields an empty list.
func stringList(data json.RawMessage) []string {
	out := []string{}
	var items []any
	if len(data) == 0 || json.Unmarshal(data, &items) != nil {
		return out
	}
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func yearRange(data json.RawMessage) *domain.YearRange {
	if len(data) == 0 {
		return nil
	}
	var yr struct {
		Start *int `json:"start"`
		End   *int `json:"end"`
	}
	if json.Unmarshal(data, &yr) != nil || yr.Start == nil || *yr.Start <= 0 {
		return nil
	}
	out := &domain.YearRange{Start: *yr.Start}
	if yr.End != nil && *yr.End >= *yr.Start {
		end := *yr.End
		out.End = &end
	}
	return out
}
