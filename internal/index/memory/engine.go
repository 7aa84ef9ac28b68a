// Package memory implements the product index backend in process. It mirrors
// the scoring contract of the Elasticsearch backend closely enough for local
// runs and service-level tests: popularity multiplies base relevance and a
// zero-relevance document never outranks a relevant one.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/internal/index"
)

// Engine is an in-memory implementation of index.Backend.
type Engine struct {
	mu   sync.RWMutex
	docs map[string]domain.ProductDocument
}

// New creates an empty in-memory engine.
func New() *Engine {
	return &Engine{docs: make(map[string]domain.ProductDocument)}
}

// Upsert stores the document under its ID, replacing any previous version.
func (e *Engine) Upsert(_ context.Context, doc *domain.ProductDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.docs[doc.ID] = *doc
	return nil
}

// Delete removes a document. Missing documents are ignored.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.docs, id)
	return nil
}

// UpdateActivityCount overwrites a popularity counter on a stored document.
func (e *Engine) UpdateActivityCount(_ context.Context, id string, activityType domain.ActivityType, count int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[id]
	if !ok {
		return nil
	}
	if activityType == domain.ActivityPurchase {
		doc.PurchaseCount = count
	} else {
		doc.ViewCount = count
	}
	e.docs[id] = doc
	return nil
}

// BulkUpsert stores all documents. In-memory writes cannot partially fail.
func (e *Engine) BulkUpsert(_ context.Context, docs []domain.ProductDocument) ([]index.BulkItemError, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range docs {
		e.docs[docs[i].ID] = docs[i]
	}
	return nil, nil
}

// popularity mirrors the index's scoring functions: log1p(view_count)*1.0
// plus log1p(purchase_count)*2.0, summed.
func popularity(doc *domain.ProductDocument) float64 {
	return math.Log1p(float64(doc.ViewCount)) + 2*math.Log1p(float64(doc.PurchaseCount))
}

// baseRelevance counts query terms found in the document's name or
// description. An empty query matches everything with base 1.
func baseRelevance(doc *domain.ProductDocument, query string) float64 {
	if query == "" {
		return 1
	}
	text := strings.ToLower(doc.Name + " " + doc.Description)
	score := 0.0
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if strings.Contains(text, term) {
			score++
		}
	}
	return score
}

func matchesFilters(doc *domain.ProductDocument, req *domain.SearchRequest) bool {
	if req.Category != nil && *req.Category != "" {
		found := false
		for _, c := range doc.Categories {
			if c.Name == *req.Category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if req.MinPrice != nil && doc.Price < *req.MinPrice {
		return false
	}
	if req.MaxPrice != nil && doc.Price > *req.MaxPrice {
		return false
	}
	return true
}

// Search scores all matching documents, builds the category facet over the
// full match set, then sorts and paginates.
func (e *Engine) Search(_ context.Context, req *domain.SearchRequest) (*index.Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var hits []index.Hit
	var matched []domain.ProductDocument
	for id := range e.docs {
		doc := e.docs[id]
		if !matchesFilters(&doc, req) {
			continue
		}
		base := baseRelevance(&doc, req.Query)
		if req.Query != "" && base == 0 {
			continue
		}
		hits = append(hits, index.Hit{ID: doc.ID, Score: base * popularity(&doc)})
		matched = append(matched, doc)
	}

	sortHits(hits, matched, req.SortBy, req.SortOrder)

	facets := map[string][]domain.FacetEntry{}
	if entries := categoryFacet(matched); len(entries) > 0 {
		facets["categories"] = entries
	}

	total := int64(len(hits))
	hits = paginate(hits, req.Page, req.Size)

	return &index.Result{Hits: hits, TotalHits: total, Facets: facets}, nil
}

func sortHits(hits []index.Hit, docs []domain.ProductDocument, sortBy, sortOrder string) {
	prices := make(map[string]int64, len(docs))
	for i := range docs {
		prices[docs[i].ID] = docs[i].Price
	}

	asc := sortOrder == domain.SortOrderAsc
	sort.SliceStable(hits, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "price":
			if prices[hits[i].ID] == prices[hits[j].ID] {
				return hits[i].ID < hits[j].ID
			}
			less = prices[hits[i].ID] < prices[hits[j].ID]
		default:
			if hits[i].Score == hits[j].Score {
				return hits[i].ID < hits[j].ID
			}
			less = hits[i].Score < hits[j].Score
		}
		if asc {
			return less
		}
		return !less
	})
}

func categoryFacet(docs []domain.ProductDocument) []domain.FacetEntry {
	counts := map[string]int64{}
	for i := range docs {
		for _, c := range docs[i].Categories {
			counts[c.Name]++
		}
	}
	entries := make([]domain.FacetEntry, 0, len(counts))
	for name, n := range counts {
		entries = append(entries, domain.FacetEntry{Key: name, Count: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count == entries[j].Count {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].Count > entries[j].Count
	})
	return entries
}

func paginate(hits []index.Hit, page, size int) []index.Hit {
	from := (page - 1) * size
	if from >= len(hits) {
		return []index.Hit{}
	}
	to := from + size
	if to > len(hits) {
		to = len(hits)
	}
	return hits[from:to]
}

// Similar ranks documents by term overlap with the seed document, with a
// bonus for shared categories. The seed itself is excluded.
func (e *Engine) Similar(_ context.Context, productID string, categoryNames []string, limit int) (*index.Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	seed, ok := e.docs[productID]
	var seedTerms []string
	if ok {
		seedTerms = strings.Fields(strings.ToLower(seed.Name + " " + seed.Description))
	}

	catSet := make(map[string]bool, len(categoryNames))
	for _, name := range categoryNames {
		catSet[strings.ToLower(name)] = true
	}

	var hits []index.Hit
	for id := range e.docs {
		if id == productID {
			continue
		}
		doc := e.docs[id]
		base := termOverlap(&doc, seedTerms)
		if base == 0 {
			continue
		}
		for _, c := range doc.Categories {
			if catSet[strings.ToLower(c.Name)] {
				base++
				break
			}
		}
		hits = append(hits, index.Hit{ID: doc.ID, Score: base * popularity(&doc)})
	}

	return topHits(hits, limit), nil
}

// Recommend ranks documents by term overlap with the seed set. Seeds that
// are IDs of stored documents contribute that document's terms; other seeds
// contribute their own tokens.
func (e *Engine) Recommend(_ context.Context, productIDs []string, activityType domain.ActivityType, limit int) (*index.Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	seedSet := make(map[string]bool, len(productIDs))
	var seedTerms []string
	for _, seed := range productIDs {
		if doc, ok := e.docs[seed]; ok {
			seedSet[seed] = true
			seedTerms = append(seedTerms, strings.Fields(strings.ToLower(doc.Name+" "+doc.Description))...)
		} else {
			seedTerms = append(seedTerms, strings.ToLower(seed))
		}
	}

	var hits []index.Hit
	for id := range e.docs {
		if seedSet[id] {
			continue
		}
		doc := e.docs[id]
		base := termOverlap(&doc, seedTerms)
		if base == 0 {
			continue
		}
		signal := math.Log1p(float64(doc.ViewCount))
		if activityType == domain.ActivityPurchase {
			signal = 2 * math.Log1p(float64(doc.PurchaseCount))
		}
		hits = append(hits, index.Hit{ID: doc.ID, Score: base * signal})
	}

	return topHits(hits, limit), nil
}

func termOverlap(doc *domain.ProductDocument, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	text := strings.ToLower(doc.Name + " " + doc.Description)
	seen := map[string]bool{}
	score := 0.0
	for _, term := range terms {
		if seen[term] {
			continue
		}
		seen[term] = true
		if strings.Contains(text, term) {
			score++
		}
	}
	return score
}

func topHits(hits []index.Hit, limit int) *index.Result {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ID < hits[j].ID
		}
		return hits[i].Score > hits[j].Score
	})
	total := int64(len(hits))
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []index.Hit{}
	}
	return &index.Result{Hits: hits, TotalHits: total, Facets: map[string][]domain.FacetEntry{}}
}

// Suggest returns names whose name or any word of it starts with the prefix.
func (e *Engine) Suggest(_ context.Context, prefix string, limit int) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	lower := strings.ToLower(prefix)
	var names []string
	for id := range e.docs {
		doc := e.docs[id]
		for _, input := range doc.NameSuggest {
			if strings.HasPrefix(strings.ToLower(input), lower) {
				names = append(names, doc.Name)
				break
			}
		}
	}
	return dedupeSorted(names, limit), nil
}

// NgramSuggest returns names containing the query as a substring.
func (e *Engine) NgramSuggest(_ context.Context, query string, limit int) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	lower := strings.ToLower(query)
	var names []string
	for id := range e.docs {
		doc := e.docs[id]
		if strings.Contains(strings.ToLower(doc.Name), lower) {
			names = append(names, doc.Name)
		}
	}
	return dedupeSorted(names, limit), nil
}

// FuzzySuggest returns names with a word within edit distance 2 of the query.
func (e *Engine) FuzzySuggest(_ context.Context, query string, limit int) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	lower := strings.ToLower(query)
	var names []string
	for id := range e.docs {
		doc := e.docs[id]
		for _, word := range strings.Fields(strings.ToLower(doc.Name)) {
			if editDistance(word, lower) <= 2 {
				names = append(names, doc.Name)
				break
			}
		}
	}
	return dedupeSorted(names, limit), nil
}

func dedupeSorted(names []string, limit int) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Ping always succeeds for the in-memory engine.
func (e *Engine) Ping(_ context.Context) error {
	return nil
}
