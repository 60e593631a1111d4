package query

import (
	"regexp"
	"strings"
)

var (
	explicitOperatorRe = regexp.MustCompile(`(?i)(^|[\s(])(au|ti|abs|cat|all|submittedDate):`)
	dateRangeRe        = regexp.MustCompile(`\[\s*\S+\s+TO\s+\S+\s*\]`)
	strictAuthorRe     = regexp.MustCompile(`au:"([^"]+)"`)
	booleanOperators   = map[string]bool{"AND": true, "OR": true, "ANDNOT": true}
)

// HasExplicitOperators reports whether raw input already uses arXiv field
// prefixes or a date range, in which case it is sent verbatim.
func HasExplicitOperators(raw string) bool {
	return explicitOperatorRe.MatchString(raw) || dateRangeRe.MatchString(raw)
}

// HasStrictAuthorClause reports whether the query contains a quoted au: clause.
func HasStrictAuthorClause(q string) bool {
	return strictAuthorRe.MatchString(q)
}

// RelaxAuthors widens every quoted author clause so the name may also match
// anywhere in the record: au:"x" becomes (au:"x" OR all:"x").
func RelaxAuthors(q string) string {
	return strictAuthorRe.ReplaceAllString(q, `(au:"$1" OR all:"$1")`)
}

// JoinTermsWithAnd inserts AND between adjacent terms that have no boolean
// operator between them. Quoted phrases count as a single term.
func JoinTermsWithAnd(q string) string {
	terms := splitTerms(q)
	if len(terms) < 2 {
		return strings.Join(terms, " ")
	}

	out := []string{terms[0]}
	for _, term := range terms[1:] {
		prev := out[len(out)-1]
		if !booleanOperators[prev] && !booleanOperators[term] &&
			!strings.HasSuffix(prev, "(") && !strings.HasPrefix(term, ")") {
			out = append(out, "AND")
		}
		out = append(out, term)
	}
	return strings.Join(out, " ")
}

// EscapeLiteral prepares free text for the legacy request. Whitespace is
// collapsed, and quotes or parentheses are removed when they are unbalanced.
func EscapeLiteral(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	if strings.Count(s, `"`)%2 != 0 {
		s = strings.ReplaceAll(s, `"`, "")
	}
	if !balancedParens(s) {
		s = strings.NewReplacer("(", "", ")", "").Replace(s)
	}
	return strings.Join(strings.Fields(s), " ")
}

// splitTerms splits on whitespace outside double quotes.
func splitTerms(q string) []string {
	var (
		terms   []string
		current strings.Builder
		quoted  bool
	)
	flush := func() {
		if current.Len() > 0 {
			terms = append(terms, current.String())
			current.Reset()
		}
	}
	for _, r := range q {
		switch {
		case r == '"':
			quoted = !quoted
			current.WriteRune(r)
		case !quoted && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return terms
}

func balancedParens(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
