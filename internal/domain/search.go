package domain

// Sort order constants.
const (
	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"
)

// DefaultSortField is the index's relevance pseudo-field.
const DefaultSortField = "_score"

// SearchRequest holds all parameters for a product search. Category and the
// price bounds are optional; omitting one simply omits the corresponding
// filter clause.
type SearchRequest struct {
	Query     string  `json:"query"`
	Category  *string `json:"category,omitempty"`
	MinPrice  *int64  `json:"min_price,omitempty"`
	MaxPrice  *int64  `json:"max_price,omitempty"`
	SortBy    string  `json:"sort_by"`
	SortOrder string  `json:"sort_order"`
	Page      int     `json:"page"`
	Size      int     `json:"size"`
}

// Normalize applies defaults and bounds: page is 1-based, size defaults to 20
// and is capped at 100, sort defaults to relevance descending.
func (r *SearchRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Size < 1 {
		r.Size = 20
	}
	if r.Size > 100 {
		r.Size = 100
	}
	if r.SortBy == "" {
		r.SortBy = DefaultSortField
	}
	if r.SortOrder != SortOrderAsc {
		r.SortOrder = SortOrderDesc
	}
}

// FacetEntry is a single count-per-value bucket of a facet aggregation.
type FacetEntry struct {
	Key   string `json:"key"`
	Count int64  `json:"doc_count"`
}

// SearchResult is the ranked search response. Data preserves the rank order
// returned by the index; it is never re-sorted.
type SearchResult struct {
	Data      []ProductResponse       `json:"data"`
	TotalHits int64                   `json:"total_hits"`
	Facets    map[string][]FacetEntry `json:"facets"`
}

// EmptySearchResult returns a result with zero hits and no facets.
func EmptySearchResult() *SearchResult {
	return &SearchResult{
		Data:      []ProductResponse{},
		TotalHits: 0,
		Facets:    map[string][]FacetEntry{},
	}
}
