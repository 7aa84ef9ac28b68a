package elasticsearch

// IndexName is the fixed name of the product index.
const IndexName = "products"

// indexMapping returns the settings and mappings used when the index is
// created. The n-gram analyzer backs partial-match autocomplete, the
// completion field backs prefix autocomplete, and categories are nested so
// entry fields never cross-match between categories.
func indexMapping() map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
			"analysis": map[string]any{
				"analyzer": map[string]any{
					"ngram_analyzer": map[string]any{
						"type":      "custom",
						"tokenizer": "ngram_tokenizer",
						"filter":    []string{"lowercase"},
					},
					"ngram_search_analyzer": map[string]any{
						"type":      "custom",
						"tokenizer": "standard",
						"filter":    []string{"lowercase"},
					},
				},
				"tokenizer": map[string]any{
					"ngram_tokenizer": map[string]any{
						"type":        "ngram",
						"min_gram":    3,
						"max_gram":    4,
						"token_chars": []string{"letter", "digit"},
					},
				},
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":   map[string]any{"type": "keyword"},
				"name": map[string]any{
					"type": "text",
					"fields": map[string]any{
						"keyword": map[string]any{"type": "keyword", "ignore_above": 256},
					},
				},
				"description":    map[string]any{"type": "text"},
				"price":          map[string]any{"type": "long"},
				"stock_quantity": map[string]any{"type": "integer"},
				"weight_grams":   map[string]any{"type": "integer"},
				"owner_id":       map[string]any{"type": "keyword"},
				"view_count":     map[string]any{"type": "long"},
				"purchase_count": map[string]any{"type": "long"},
				"categories": map[string]any{
					"type": "nested",
					"properties": map[string]any{
						"category_id": map[string]any{"type": "keyword"},
						"name": map[string]any{
							"type": "text",
							"fields": map[string]any{
								"keyword": map[string]any{"type": "keyword"},
							},
						},
					},
				},
				"name_ngram": map[string]any{
					"type":            "text",
					"analyzer":        "ngram_analyzer",
					"search_analyzer": "ngram_search_analyzer",
				},
				"name_suggest": map[string]any{"type": "completion"},
			},
		},
	}
}
