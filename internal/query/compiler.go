package query

import (
	"fmt"
	"strings"

	"github.com/arxivite/search-service/internal/domain"
)

// Compile renders an intent as an arXiv query. Groups are AND-joined in a
// fixed order: authors, topics, year, categories, institutions. An empty
// intent compiles to "".
func Compile(intent domain.SearchIntent) string {
	var groups []string

	if g := authorGroup(intent.Authors); g != "" {
		groups = append(groups, g)
	}
	if g := topicGroup(intent.Topics); g != "" {
		groups = append(groups, g)
	}
	if g := yearGroup(intent.YearRange); g != "" {
		groups = append(groups, g)
	}
	if g := categoryGroup(intent.Categories); g != "" {
		groups = append(groups, g)
	}
	if g := institutionGroup(intent.Institutions); g != "" {
		groups = append(groups, g)
	}

	return strings.Join(groups, " AND ")
}

func authorGroup(authors []string) string {
	var clauses []string
	for _, a := range authors {
		name := sanitize(a)
		if name == "" {
			continue
		}
		tokens := strings.Fields(name)
		if len(tokens) < 2 {
			clauses = append(clauses, fmt.Sprintf(`au:"%s"`, name))
			continue
		}
		clauses = append(clauses, fmt.Sprintf(`(au:"%s" OR au:"%s")`, name, strings.Join(reversed(tokens), " ")))
	}
	return group(clauses, " OR ")
}

func topicGroup(topics []string) string {
	var clauses []string
	for _, t := range topics {
		if v := sanitize(t); v != "" {
			clauses = append(clauses, fmt.Sprintf(`all:"%s"`, v))
		}
	}
	return group(clauses, " AND ")
}

func yearGroup(yr *domain.YearRange) string {
	if yr == nil || yr.Start <= 0 {
		return ""
	}
	end := "now"
	if yr.End != nil && *yr.End > 0 {
		end = fmt.Sprintf("%04d1231", *yr.End)
	}
	return fmt.Sprintf("(submittedDate:[%04d0101 TO %s])", yr.Start, end)
}

func categoryGroup(categories []string) string {
	var clauses []string
	for _, c := range categories {
		id := strings.Join(strings.Fields(sanitize(c)), "")
		if id != "" {
			clauses = append(clauses, "cat:"+id)
		}
	}
	return group(clauses, " OR ")
}

func institutionGroup(institutions []string) string {
	var clauses []string
	for _, i := range institutions {
		if v := sanitize(i); v != "" {
			clauses = append(clauses, fmt.Sprintf(`(abs:"%s" OR ti:"%s")`, v, v))
		}
	}
	return group(clauses, " OR ")
}

func group(clauses []string, sep string) string {
	if len(clauses) == 0 {
		return ""
	}
	return "(" + strings.Join(clauses, sep) + ")"
}

// sanitize strips characters that would unbalance a quoted phrase and
// collapses whitespace.
func sanitize(v string) string {
	v = strings.ReplaceAll(v, `"`, "")
	return strings.Join(strings.Fields(v), " ")
}

func reversed(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[len(tokens)-1-i] = t
	}
	return out
}
