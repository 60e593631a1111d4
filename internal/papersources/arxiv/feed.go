package arxiv

import "encoding/xml"

// Feed-level opensearch counters. Each is optional in the schema; a missing
// counter decodes as zero.
type feedCounters struct {
	TotalResults int
	StartIndex   int
	ItemsPerPage int
}

// Entry is one Atom entry. Elements the provider may omit are pointers so a
// missing element is distinguishable from an empty one.
type Entry struct {
	XMLName         xml.Name   `xml:"entry"`
	ID              string     `xml:"id"`
	Title           string     `xml:"title"`
	Summary         string     `xml:"summary"`
	Published       string     `xml:"published"`
	Updated         string     `xml:"updated"`
	Authors         []Author   `xml:"author"`
	Links           []Link     `xml:"link"`
	Categories      []Category `xml:"category"`
	PrimaryCategory *Category  `xml:"primary_category"`
	Comment         *string    `xml:"comment"`
	JournalRef      *string    `xml:"journal_ref"`
	DOI             *string    `xml:"doi"`
}

// Author is an entry author.
type Author struct {
	Name        string `xml:"name"`
	Affiliation string `xml:"affiliation"`
}

// Link is an entry link. The abstract page carries no title attribute; the
// PDF link has title="pdf".
type Link struct {
	Href  string  `xml:"href,attr"`
	Rel   string  `xml:"rel,attr"`
	Type  string  `xml:"type,attr"`
	Title *string `xml:"title,attr"`
}

// Category is a subject classification term.
type Category struct {
	Term   string `xml:"term,attr"`
	Scheme string `xml:"scheme,attr"`
}

// Feed is a decoded response document.
type Feed struct {
	feedCounters
	Entries []Entry
}
