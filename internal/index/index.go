// Package index defines the search backend contract for the product index.
// Implementations live in subpackages: elasticsearch is the production
// backend, memory is an in-process backend for local runs and tests.
package index

import (
	"context"
	"errors"

	"github.com/elanq/ecommerce-search/internal/domain"
)

// ErrTransient marks a backend failure that is worth retrying: transport
// errors, timeouts and 5xx responses. Everything else (malformed requests,
// mapping conflicts) is permanent and wrapped without this sentinel.
var ErrTransient = errors.New("transient index failure")

// Hit is a single ranked match. Only the document ID and score travel back
// from the index; the full product is resolved through the read path.
type Hit struct {
	ID    string
	Score float64
}

// Result is a ranked page of hits plus facet buckets.
type Result struct {
	Hits      []Hit
	TotalHits int64
	Facets    map[string][]domain.FacetEntry
}

// BulkItemError describes a single failed item within an otherwise
// successful bulk request.
type BulkItemError struct {
	ID     string
	Type   string
	Reason string
}

// Backend is the full product index contract: document writes, ranked
// queries and the three autocomplete strategies.
type Backend interface {
	// Upsert replaces the whole document; the doc ID equals the product ID.
	Upsert(ctx context.Context, doc *domain.ProductDocument) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, id string) error
	// UpdateActivityCount overwrites a single popularity counter in place.
	UpdateActivityCount(ctx context.Context, id string, activityType domain.ActivityType, count int64) error
	// BulkUpsert writes a batch of documents and reports per-item failures
	// without failing the whole call.
	BulkUpsert(ctx context.Context, docs []domain.ProductDocument) ([]BulkItemError, error)

	// Search runs a filtered, popularity-boosted keyword query.
	Search(ctx context.Context, req *domain.SearchRequest) (*Result, error)
	// Similar finds products resembling the given one by shared terms,
	// with category overlap as a soft boost. The seed itself is excluded.
	Similar(ctx context.Context, productID string, categoryNames []string, limit int) (*Result, error)
	// Recommend finds products resembling a set of seed product IDs,
	// boosted by the counter matching the given activity type.
	Recommend(ctx context.Context, productIDs []string, activityType domain.ActivityType, limit int) (*Result, error)

	// Suggest completes a prefix against the completion field.
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)
	// NgramSuggest matches partial and infix tokens against the n-gram field.
	NgramSuggest(ctx context.Context, query string, limit int) ([]string, error)
	// FuzzySuggest tolerates typos via fuzzy matching on the name field.
	FuzzySuggest(ctx context.Context, query string, limit int) ([]string, error)

	Ping(ctx context.Context) error
}
