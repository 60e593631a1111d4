package arxiv

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/arxivite/search-service/internal/domain"
)

// ErrMalformedFeed is returned when a payload cannot be read as a feed at all.
var ErrMalformedFeed = errors.New("malformed feed")

// Transform decodes an Atom payload into records and collection metadata.
// Entries are decoded one at a time and missing fields take defaults, so a
// document truncated after some entries still yields those entries.
func Transform(payload []byte) ([]domain.PaperRecord, domain.SearchMetadata, error) {
	feed, err := decodeFeed(payload)
	if err != nil {
		return nil, domain.SearchMetadata{}, err
	}
	return feed.records(), feed.metadata(), nil
}

func decodeFeed(payload []byte) (*Feed, error) {
	dec := xml.NewDecoder(bytes.NewReader(payload))
	dec.Strict = false

	feed := &Feed{}
	sawFeed := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if sawFeed {
				return feed, nil
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "feed":
			sawFeed = true
		case "entry":
			var e Entry
			if err := dec.DecodeElement(&e, &se); err != nil {
				return feed, nil
			}
			feed.Entries = append(feed.Entries, e)
		case "totalResults":
			feed.TotalResults = decodeCounter(dec, &se)
		case "startIndex":
			feed.StartIndex = decodeCounter(dec, &se)
		case "itemsPerPage":
			feed.ItemsPerPage = decodeCounter(dec, &se)
		}
	}

	if !sawFeed {
		return nil, fmt.Errorf("%w: no feed element", ErrMalformedFeed)
	}
	return feed, nil
}

func decodeCounter(dec *xml.Decoder, se *xml.StartElement) int {
	var s string
	if err := dec.DecodeElement(&s, se); err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func (f *Feed) records() []domain.PaperRecord {
	records := make([]domain.PaperRecord, 0, len(f.Entries))
	for i := range f.Entries {
		records = append(records, entryToRecord(&f.Entries[i]))
	}
	return records
}

func (f *Feed) metadata() domain.SearchMetadata {
	return domain.SearchMetadata{
		TotalResults: f.TotalResults,
		ItemsPerPage: f.ItemsPerPage,
		StartIndex:   f.StartIndex,
	}
}

// queryError reports whether the feed is the provider's error document for
// a query it could not parse, and returns its message.
func (f *Feed) queryError() (string, bool) {
	for _, e := range f.Entries {
		isErrorDoc := strings.Contains(e.ID, "arxiv.org/api/errors")
		isErrorTitle := strings.EqualFold(normalizeWhitespace(e.Title), "error") && !strings.Contains(e.ID, "/abs/")
		if isErrorDoc || isErrorTitle {
			msg := normalizeWhitespace(e.Summary)
			if msg == "" {
				msg = "malformed query"
			}
			return msg, true
		}
	}
	return "", false
}

func entryToRecord(e *Entry) domain.PaperRecord {
	rec := domain.PaperRecord{
		ID:         extractID(e.ID),
		Title:      normalizeWhitespace(e.Title),
		Abstract:   normalizeWhitespace(e.Summary),
		Authors:    make([]string, 0, len(e.Authors)),
		Categories: orderedCategories(e),
		Published:  parseTimestamp(e.Published),
		Updated:    parseTimestamp(e.Updated),
		Comments:   optional(e.Comment),
		JournalRef: optional(e.JournalRef),
		DOI:        optional(e.DOI),
	}

	for _, a := range e.Authors {
		if name := normalizeWhitespace(a.Name); name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}

	for _, l := range e.Links {
		switch {
		case l.Title == nil && rec.Links.Abstract == "":
			rec.Links.Abstract = strings.TrimSpace(l.Href)
		case l.Title != nil && *l.Title == "pdf" && rec.Links.PDF == "":
			rec.Links.PDF = strings.TrimSpace(l.Href)
		}
	}

	return rec
}

// orderedCategories puts the primary category first, then the remaining
// terms in document order, without duplicates.
func orderedCategories(e *Entry) []string {
	seen := make(map[string]bool, len(e.Categories)+1)
	out := make([]string, 0, len(e.Categories)+1)
	add := func(term string) {
		term = strings.TrimSpace(term)
		if term == "" || seen[term] {
			return
		}
		seen[term] = true
		out = append(out, term)
	}

	if e.PrimaryCategory != nil {
		add(e.PrimaryCategory.Term)
	}
	for _, c := range e.Categories {
		add(c.Term)
	}
	return out
}

// extractID returns the path after /abs/, or the last path segment.
func extractID(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "/abs/"); i >= 0 {
		return raw[i+len("/abs/"):]
	}
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

func parseTimestamp(s string) domain.Timestamp {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return domain.Timestamp{}
	}
	return domain.NewTimestamp(t)
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return normalizeWhitespace(*s)
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
