// Package elasticsearch implements the product index backend on an
// Elasticsearch cluster, building the query DSL as raw maps and decoding
// responses into the backend's result types.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/internal/index"
)

// Engine is the Elasticsearch-backed implementation of index.Backend.
type Engine struct {
	client *elasticsearch.Client
	logger *slog.Logger
}

// esSearchResponse is the structure used to decode search responses. Score
// is null when sorting by a field; the zero value is fine in that case.
type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Score  float64         `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations struct {
		Categories struct {
			CategoryNames struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int64  `json:"doc_count"`
				} `json:"buckets"`
			} `json:"category_names"`
		} `json:"categories"`
	} `json:"aggregations"`
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an Elasticsearch engine connected to the given URL and ensures
// the products index exists, creating it with the mapping if necessary.
func New(esURL string, logger *slog.Logger) (*Engine, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	e := &Engine{
		client: client,
		logger: logger,
	}

	if err := e.ensureIndex(); err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to ensure index: %w", err)
	}

	return e, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w: %v", index.ErrTransient, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// ensureIndex checks whether the products index exists and creates it if not.
func (e *Engine) ensureIndex() error {
	res, err := e.client.Indices.Exists([]string{IndexName})
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	// Status 200 means the index exists.
	if res.StatusCode == 200 {
		e.logger.Info("elasticsearch index already exists", "index", IndexName)
		return nil
	}

	data, err := json.Marshal(indexMapping())
	if err != nil {
		return fmt.Errorf("create index: marshal mapping: %w", err)
	}

	res, err = e.client.Indices.Create(
		IndexName,
		e.client.Indices.Create.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return e.apiError("create index", res)
	}

	e.logger.Info("elasticsearch index created", "index", IndexName)
	return nil
}

// apiError converts a non-2xx Elasticsearch response into an error. 5xx
// responses are marked transient so callers can retry them.
func (e *Engine) apiError(op string, res *esapi.Response) error {
	msg := res.Status()
	var errResp esErrorResponse
	if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil && errResp.Error.Type != "" {
		msg = fmt.Sprintf("%s — %s", errResp.Error.Type, errResp.Error.Reason)
	}
	if res.StatusCode >= 500 {
		return fmt.Errorf("%s: %w: %s", op, index.ErrTransient, msg)
	}
	return fmt.Errorf("%s: %s", op, msg)
}

// runSearch executes a search body against the products index and decodes
// the response.
func (e *Engine) runSearch(ctx context.Context, op string, body map[string]any) (*esSearchResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal query: %w", op, err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(IndexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
		e.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, index.ErrTransient, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, e.apiError(op, res)
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return &esResp, nil
}

// toResult converts a decoded search response into the backend result shape,
// preserving the rank order of hits.
func toResult(esResp *esSearchResponse) *index.Result {
	hits := make([]index.Hit, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		hits = append(hits, index.Hit{ID: hit.ID, Score: hit.Score})
	}

	facets := map[string][]domain.FacetEntry{}
	buckets := esResp.Aggregations.Categories.CategoryNames.Buckets
	if len(buckets) > 0 {
		entries := make([]domain.FacetEntry, 0, len(buckets))
		for _, b := range buckets {
			entries = append(entries, domain.FacetEntry{Key: b.Key, Count: b.DocCount})
		}
		facets["categories"] = entries
	}

	return &index.Result{
		Hits:      hits,
		TotalHits: esResp.Hits.Total.Value,
		Facets:    facets,
	}
}

// Search executes a filtered, popularity-boosted keyword query.
func (e *Engine) Search(ctx context.Context, req *domain.SearchRequest) (*index.Result, error) {
	esResp, err := e.runSearch(ctx, "elasticsearch search", buildSearchBody(req))
	if err != nil {
		return nil, err
	}
	return toResult(esResp), nil
}

// Similar finds products resembling the given one via more_like_this.
func (e *Engine) Similar(ctx context.Context, productID string, categoryNames []string, limit int) (*index.Result, error) {
	esResp, err := e.runSearch(ctx, "elasticsearch similar", buildSimilarBody(productID, categoryNames, limit))
	if err != nil {
		return nil, err
	}
	return toResult(esResp), nil
}

// Recommend finds products resembling the seed IDs, boosted by the counter
// matching the activity type.
func (e *Engine) Recommend(ctx context.Context, productIDs []string, activityType domain.ActivityType, limit int) (*index.Result, error) {
	esResp, err := e.runSearch(ctx, "elasticsearch recommend", buildRecommendBody(productIDs, activityType, limit))
	if err != nil {
		return nil, err
	}
	return toResult(esResp), nil
}
