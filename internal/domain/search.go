package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Page sizes offered to consumers.
const (
	PageSizeSmall   = 20
	PageSizeDefault = 50
	PageSizeLarge   = 100
)

// SortField names the attribute results are ordered by.
type SortField string

const (
	SortRelevance       SortField = "relevance"
	SortSubmittedDate   SortField = "submittedDate"
	SortLastUpdatedDate SortField = "lastUpdatedDate"
	SortTitle           SortField = "title"
)

// SortOrder is the direction results are ordered in.
type SortOrder string

const (
	SortAscending  SortOrder = "ascending"
	SortDescending SortOrder = "descending"
)

// DefaultSort is submission date, newest first.
var DefaultSort = Sort{Field: SortSubmittedDate, Order: SortDescending}

// Pagination selects a page of results.
type Pagination struct {
	Page     int `json:"page" validate:"min=0"`
	PageSize int `json:"pageSize" validate:"oneof=20 50 100"`
}

// Start returns the zero-based offset of the first result on the page.
// It is only meaningful for pagination that passed InWindow.
func (p Pagination) Start() int {
	return p.Page * p.PageSize
}

// InWindow reports whether the page starts inside MaxResultWindow. The page
// is compared before multiplying so huge page numbers cannot wrap around.
func (p Pagination) InWindow() bool {
	if p.Page < 0 || p.PageSize <= 0 {
		return false
	}
	return p.Page <= (MaxResultWindow-1)/p.PageSize
}

// Sort selects result ordering.
type Sort struct {
	Field SortField `json:"field" validate:"oneof=relevance submittedDate lastUpdatedDate title"`
	Order SortOrder `json:"order" validate:"oneof=ascending descending"`
}

// SearchRequest is the consumer-facing search input.
type SearchRequest struct {
	Query      string     `json:"query" validate:"required,max=1000"`
	Pagination Pagination `json:"pagination"`
	Sort       Sort       `json:"sort"`
}

// WithDefaults fills unset pagination and sort fields.
func (r SearchRequest) WithDefaults() SearchRequest {
	r.Query = strings.TrimSpace(r.Query)
	if r.Pagination.PageSize == 0 {
		r.Pagination.PageSize = PageSizeDefault
	}
	if r.Sort.Field == "" {
		r.Sort.Field = DefaultSort.Field
	}
	if r.Sort.Order == "" {
		r.Sort.Order = DefaultSort.Order
	}
	return r
}

// ResolutionPath records which retrieval strategy produced a result.
type ResolutionPath string

const (
	PathSuccess          ResolutionPath = "success"
	PathEmptyRelax       ResolutionPath = "empty_relax"
	PathParserErrorRelax ResolutionPath = "parser_error_relax"
	PathLegacyFallback   ResolutionPath = "legacy_fallback"
)

// SearchResult is a page of normalized results plus how they were obtained.
type SearchResult struct {
	Papers     []PaperRecord  `json:"papers"`
	Metadata   SearchMetadata `json:"metadata"`
	Path       ResolutionPath `json:"path"`
	Query      string         `json:"query"`
	Generation string         `json:"generation,omitempty"`
	Cached     bool           `json:"cached"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateSearchRequest checks a defaulted request and returns a
// ValidationError for the first offending field.
func ValidateSearchRequest(r SearchRequest) error {
	if err := requestValidator().Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return NewValidationError(fieldName(fe.Namespace()), describe(fe))
		}
		return NewValidationError("request", err.Error())
	}
	if !r.Pagination.InWindow() {
		return NewValidationError("pagination.page",
			fmt.Sprintf("page %d of size %d starts beyond the %d result window", r.Pagination.Page, r.Pagination.PageSize, MaxResultWindow))
	}
	return nil
}

func fieldName(namespace string) string {
	namespace = strings.TrimPrefix(namespace, "SearchRequest.")
	parts := strings.Split(namespace, ".")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
