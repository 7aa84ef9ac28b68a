package elasticsearch

import (
	"github.com/elanq/ecommerce-search/internal/domain"
)

// Boost factors for the popularity scoring functions. Purchases count twice
// as much as views.
const (
	viewBoostFactor     = 1.0
	purchaseBoostFactor = 2.0
)

// popularityFunctions returns the field_value_factor functions applied to
// every ranked query: log1p(view_count)*1.0 and log1p(purchase_count)*2.0.
// With score_mode sum and boost_mode multiply the combined value multiplies
// the base relevance, so popularity amplifies relevance but can never lift a
// zero-relevance document above a relevant one.
func popularityFunctions() []any {
	return []any{
		map[string]any{
			"field_value_factor": map[string]any{
				"field":    "view_count",
				"factor":   viewBoostFactor,
				"modifier": "log1p",
			},
		},
		map[string]any{
			"field_value_factor": map[string]any{
				"field":    "purchase_count",
				"factor":   purchaseBoostFactor,
				"modifier": "log1p",
			},
		},
	}
}

func functionScore(query map[string]any, functions []any) map[string]any {
	return map[string]any{
		"function_score": map[string]any{
			"query":      query,
			"functions":  functions,
			"score_mode": "sum",
			"boost_mode": "multiply",
		},
	}
}

// buildSearchBody translates a normalized search request into the query DSL.
// An empty query string leaves the bool query without a must clause, which
// matches everything; filters never contribute to scoring.
func buildSearchBody(req *domain.SearchRequest) map[string]any {
	boolQuery := map[string]any{}

	if req.Query != "" {
		boolQuery["must"] = []any{
			map[string]any{
				"multi_match": map[string]any{
					"query":  req.Query,
					"fields": []string{"name", "description"},
				},
			},
		}
	}

	var filters []any
	if req.Category != nil && *req.Category != "" {
		filters = append(filters, map[string]any{
			"nested": map[string]any{
				"path": "categories",
				"query": map[string]any{
					"term": map[string]any{
						"categories.name.keyword": *req.Category,
					},
				},
			},
		})
	}
	if req.MinPrice != nil || req.MaxPrice != nil {
		priceRange := map[string]any{}
		if req.MinPrice != nil {
			priceRange["gte"] = *req.MinPrice
		}
		if req.MaxPrice != nil {
			priceRange["lte"] = *req.MaxPrice
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{"price": priceRange},
		})
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	return map[string]any{
		"query": functionScore(map[string]any{"bool": boolQuery}, popularityFunctions()),
		"from":  (req.Page - 1) * req.Size,
		"size":  req.Size,
		"sort": []any{
			map[string]any{req.SortBy: map[string]any{"order": req.SortOrder}},
		},
		"aggs": map[string]any{
			"categories": map[string]any{
				"nested": map[string]any{"path": "categories"},
				"aggs": map[string]any{
					"category_names": map[string]any{
						"terms": map[string]any{"field": "categories.name.keyword"},
					},
				},
			},
		},
	}
}

// buildSimilarBody builds a more_like_this query seeded by a stored document.
// Term similarity is the hard requirement; sharing a category only boosts.
func buildSimilarBody(productID string, categoryNames []string, limit int) map[string]any {
	boolQuery := map[string]any{
		"must": []any{
			map[string]any{
				"more_like_this": map[string]any{
					"fields": []string{"name", "description"},
					"like": []any{
						map[string]any{"_index": IndexName, "_id": productID},
					},
					"min_term_freq":   1,
					"min_doc_freq":    1,
					"max_query_terms": 12,
				},
			},
		},
	}
	if len(categoryNames) > 0 {
		boolQuery["should"] = []any{
			map[string]any{
				"nested": map[string]any{
					"path": "categories",
					"query": map[string]any{
						"terms": map[string]any{"categories.name": categoryNames},
					},
				},
			},
		}
	}

	return map[string]any{
		"query": functionScore(map[string]any{"bool": boolQuery}, popularityFunctions()),
		"size":  limit,
	}
}

// buildRecommendBody builds a more_like_this query seeded by free text and
// boosted by the single counter matching the activity type, so purchase
// history recommends what people buy and view history what they browse.
func buildRecommendBody(seeds []string, activityType domain.ActivityType, limit int) map[string]any {
	like := make([]any, 0, len(seeds))
	for _, s := range seeds {
		like = append(like, s)
	}

	field := "view_count"
	factor := viewBoostFactor
	if activityType == domain.ActivityPurchase {
		field = "purchase_count"
		factor = purchaseBoostFactor
	}

	query := map[string]any{
		"more_like_this": map[string]any{
			"fields":          []string{"name", "description"},
			"like":            like,
			"min_term_freq":   1,
			"min_doc_freq":    1,
			"max_query_terms": 12,
		},
	}

	return map[string]any{
		"query": functionScore(query, []any{
			map[string]any{
				"field_value_factor": map[string]any{
					"field":    field,
					"factor":   factor,
					"modifier": "log1p",
				},
			},
		}),
		"size": limit,
	}
}

// buildSuggestBody builds a completion-suggester request on name_suggest.
func buildSuggestBody(prefix string, limit int) map[string]any {
	return map[string]any{
		"suggest": map[string]any{
			"product_suggest": map[string]any{
				"prefix": prefix,
				"completion": map[string]any{
					"field":           "name_suggest",
					"size":            limit,
					"skip_duplicates": true,
				},
			},
		},
	}
}

// buildNgramBody matches the query against the n-gram analyzed name field,
// analyzing the query itself with the n-gram analyzer so any shared gram
// of length 3 or 4 produces a match.
func buildNgramBody(query string, limit int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"match": map[string]any{
				"name_ngram": map[string]any{
					"query":    query,
					"analyzer": "ngram_analyzer",
				},
			},
		},
		"size":    limit,
		"_source": []string{"name"},
	}
}

// buildFuzzyBody matches the name field with automatic edit-distance
// fuzziness to absorb typos.
func buildFuzzyBody(query string, limit int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"fuzzy": map[string]any{
				"name": map[string]any{
					"value":     query,
					"fuzziness": "AUTO",
				},
			},
		},
		"size":    limit,
		"_source": []string{"name"},
	}
}
