package search

import (
	"slices"
	"strings"

	"github.com/arxivite/search-service/internal/domain"
)

// ProviderSort returns the sort to request from arXiv for the requested
// sort. Fields arXiv cannot sort by natively fall back to the default sort
// and are re-sorted locally by ClientSort.
func ProviderSort(requested domain.Sort) domain.Sort {
	switch requested.Field {
	case domain.SortRelevance, domain.SortSubmittedDate, domain.SortLastUpdatedDate:
		return requested
	default:
		return domain.DefaultSort
	}
}

// ClientSort orders records by the requested sort when it differs from the
// sort the provider applied. The sort is stable and operates on a copy.
// Relevance is provider-defined and never re-sorted.
func ClientSort(records []domain.PaperRecord, requested, applied domain.Sort) []domain.PaperRecord {
	if requested == applied || requested.Field == domain.SortRelevance || len(records) < 2 {
		return records
	}

	var cmp func(a, b domain.PaperRecord) int
	switch requested.Field {
	case domain.SortTitle:
		cmp = func(a, b domain.PaperRecord) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case domain.SortSubmittedDate:
		cmp = func(a, b domain.PaperRecord) int {
			return compareInt64(a.Published.Unix(), b.Published.Unix())
		}
	case domain.SortLastUpdatedDate:
		cmp = func(a, b domain.PaperRecord) int {
			return compareInt64(a.Updated.Unix(), b.Updated.Unix())
		}
	default:
		return records
	}

	out := slices.Clone(records)
	if requested.Order == domain.SortDescending {
		slices.SortStableFunc(out, func(a, b domain.PaperRecord) int { return cmp(b, a) })
	} else {
		slices.SortStableFunc(out, cmp)
	}
	return out
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
