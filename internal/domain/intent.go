package domain

import "slices"

// YearRange bounds a search by submission year. A nil End means open-ended.
type YearRange struct {
	Start int  `json:"start"`
	End   *int `json:"end,omitempty"`
}

// SearchIntent is the structured interpretation of a free-text query.
type SearchIntent struct {
	Authors      []string   `json:"authors"`
	Topics       []string   `json:"topics"`
	YearRange    *YearRange `json:"year_range,omitempty"`
	Categories   []string   `json:"arxiv_categories"`
	Institutions []string   `json:"institutions"`
}

// NewSearchIntent returns an empty intent with every list initialized.
func NewSearchIntent() SearchIntent {
	return SearchIntent{
		Authors:      []string{},
		Topics:       []string{},
		Categories:   []string{},
		Institutions: []string{},
	}
}

// Normalize replaces nil lists with empty ones so the intent always
// marshals to arrays.
func (i SearchIntent) Normalize() SearchIntent {
	if i.Authors == nil {
		i.Authors = []string{}
	}
	if i.Topics == nil {
		i.Topics = []string{}
	}
	if i.Categories == nil {
		i.Categories = []string{}
	}
	if i.Institutions == nil {
		i.Institutions = []string{}
	}
	return i
}

// IsEmpty reports whether the intent carries no search facets at all.
func (i SearchIntent) IsEmpty() bool {
	return len(i.Authors) == 0 &&
		len(i.Topics) == 0 &&
		(i.YearRange == nil || i.YearRange.Start == 0) &&
		len(i.Categories) == 0 &&
		len(i.Institutions) == 0
}

// Clone returns a deep copy so cached intents cannot be mutated by callers.
func (i SearchIntent) Clone() SearchIntent {
	out := SearchIntent{
		Authors:      slices.Clone(i.Authors),
		Topics:       slices.Clone(i.Topics),
		Categories:   slices.Clone(i.Categories),
		Institutions: slices.Clone(i.Institutions),
	}
	if i.YearRange != nil {
		yr := *i.YearRange
		if i.YearRange.End != nil {
			end := *i.YearRange.End
			yr.End = &end
		}
		out.YearRange = &yr
	}
	return out.Normalize()
}
