package domain

import (
	"encoding/json"
	"time"
)

// MaxResultWindow is the largest result count the provider will paginate
// through. Reported totals are clamped to it.
const MaxResultWindow = 2000

// Timestamp is a provider date that may have failed to parse.
// The zero value is the invalid sentinel.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// NewTimestamp wraps a parsed time.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: true}
}

// MarshalJSON encodes invalid timestamps as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339))
}

// UnmarshalJSON accepts null or an RFC 3339 string. Unparseable strings
// decode to the invalid sentinel.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		*t = Timestamp{}
		return nil
	}
	*t = NewTimestamp(parsed)
	return nil
}

// Unix returns seconds since epoch, or the minimum int64 for invalid
// timestamps so they sort before every valid date.
func (t Timestamp) Unix() int64 {
	if !t.Valid {
		return -1 << 63
	}
	return t.Time.Unix()
}

// PaperLinks holds the landing page and PDF locations for a paper.
type PaperLinks struct {
	Abstract string `json:"abstract"`
	PDF      string `json:"pdf"`
}

// PaperRecord is a normalized search result. Records are created by the
// response transformer and never mutated afterwards.
type PaperRecord struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Authors    []string   `json:"authors"`
	Abstract   string     `json:"abstract"`
	Categories []string   `json:"categories"`
	Published  Timestamp  `json:"publishedDate"`
	Updated    Timestamp  `json:"updatedDate"`
	Links      PaperLinks `json:"links"`
	Comments   string     `json:"comments,omitempty"`
	JournalRef string     `json:"journalRef,omitempty"`
	DOI        string     `json:"doi,omitempty"`
}

// SearchMetadata describes the collection a page of results belongs to.
type SearchMetadata struct {
	TotalResults int `json:"totalResults"`
	ItemsPerPage int `json:"itemsPerPage"`
	StartIndex   int `json:"startIndex"`
}

// ClampTotal caps a provider-reported total to MaxResultWindow.
func ClampTotal(total int) int {
	if total < 0 {
		return 0
	}
	if total > MaxResultWindow {
		return MaxResultWindow
	}
	return total
}

// CacheEntry is a stored page of results. Path and Query are empty for
// entries stored without a resolution.
type CacheEntry struct {
	Key      string
	Papers   []PaperRecord
	Metadata SearchMetadata
	Path     ResolutionPath
	Query    string
	StoredAt time.Time
}
