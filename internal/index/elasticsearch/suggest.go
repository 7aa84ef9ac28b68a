package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elanq/ecommerce-search/internal/index"
)

// esSuggestResponse decodes completion-suggester responses.
type esSuggestResponse struct {
	Suggest struct {
		ProductSuggest []struct {
			Options []struct {
				Text string `json:"text"`
			} `json:"options"`
		} `json:"product_suggest"`
	} `json:"suggest"`
}

// nameSource decodes the name-only _source returned by the n-gram and fuzzy
// suggestion queries.
type nameSource struct {
	Name string `json:"name"`
}

// Suggest completes a prefix against the name_suggest completion field.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	data, err := json.Marshal(buildSuggestBody(prefix, limit))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(IndexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: %w: %v", index.ErrTransient, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, e.apiError("elasticsearch suggest", res)
	}

	var esResp esSuggestResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: decode response: %w", err)
	}

	suggestions := make([]string, 0, limit)
	for _, entry := range esResp.Suggest.ProductSuggest {
		for _, opt := range entry.Options {
			suggestions = append(suggestions, opt.Text)
		}
	}
	return suggestions, nil
}

// NgramSuggest returns product names matching the query on the n-gram field.
func (e *Engine) NgramSuggest(ctx context.Context, query string, limit int) ([]string, error) {
	return e.nameSearch(ctx, "elasticsearch ngram suggest", buildNgramBody(query, limit))
}

// FuzzySuggest returns product names matching the query with typo tolerance.
func (e *Engine) FuzzySuggest(ctx context.Context, query string, limit int) ([]string, error) {
	return e.nameSearch(ctx, "elasticsearch fuzzy suggest", buildFuzzyBody(query, limit))
}

// nameSearch runs a search body and extracts the name of each hit.
func (e *Engine) nameSearch(ctx context.Context, op string, body map[string]any) ([]string, error) {
	esResp, err := e.runSearch(ctx, op, body)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		var src nameSource
		if err := json.Unmarshal(hit.Source, &src); err != nil || src.Name == "" {
			continue
		}
		names = append(names, src.Name)
	}
	return names, nil
}
