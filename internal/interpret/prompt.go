package interpret

import "strings"

const promptTemplate = `Interpret this arXiv search query: "{query}"

Respond with a single raw JSON object and nothing else (no markdown, no code fences) using exactly these fields:
{"authors": [], "topics": [], "year_range": {"start": 0, "end": null}, "arxiv_categories": [], "institutions": []}

Rules:
- authors: only phrases that read as a person's name. Keep names exactly as written.
- topics: research subjects. Multi-word technical phrases are topics even when they contain a surname, e.g. "fisher information", "markov chains", "hilbert spaces".
- year_range: include only when the query names a year or period. Use null for an open end.
- arxiv_categories: arXiv category identifiers such as "cs.LG" or "hep-th", only when clearly implied.
- institutions: universities, labs or companies named in the query.
- Use empty arrays for fields with nothing to report. Omit year_range when absent.`

// BuildPrompt embeds the raw query text in the interpretation prompt.
func BuildPrompt(raw string) string {
	return strings.Replace(promptTemplate, "{query}", raw, 1)
}
