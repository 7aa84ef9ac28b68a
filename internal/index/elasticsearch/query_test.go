package elasticsearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elanq/ecommerce-search/internal/domain"
)

func TestBuildSearchBody_FullRequest(t *testing.T) {
	category := "Electronics"
	minPrice, maxPrice := int64(100), int64(500)
	req := &domain.SearchRequest{
		Query:    "wireless mouse",
		Category: &category,
		MinPrice: &minPrice,
		MaxPrice: &maxPrice,
		Page:     1,
		Size:     10,
	}
	req.Normalize()

	body := buildSearchBody(req)

	assert.Equal(t, 0, body["from"])
	assert.Equal(t, 10, body["size"])

	fs := body["query"].(map[string]any)["function_score"].(map[string]any)
	assert.Equal(t, "sum", fs["score_mode"])
	assert.Equal(t, "multiply", fs["boost_mode"])

	functions := fs["functions"].([]any)
	require.Len(t, functions, 2)
	view := functions[0].(map[string]any)["field_value_factor"].(map[string]any)
	assert.Equal(t, "view_count", view["field"])
	assert.Equal(t, 1.0, view["factor"])
	assert.Equal(t, "log1p", view["modifier"])
	purchase := functions[1].(map[string]any)["field_value_factor"].(map[string]any)
	assert.Equal(t, "purchase_count", purchase["field"])
	assert.Equal(t, 2.0, purchase["factor"])

	boolQuery := fs["query"].(map[string]any)["bool"].(map[string]any)
	must := boolQuery["must"].([]any)
	require.Len(t, must, 1)
	multiMatch := must[0].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "wireless mouse", multiMatch["query"])
	assert.Equal(t, []string{"name", "description"}, multiMatch["fields"])

	filters := boolQuery["filter"].([]any)
	require.Len(t, filters, 2)

	nested := filters[0].(map[string]any)["nested"].(map[string]any)
	assert.Equal(t, "categories", nested["path"])
	term := nested["query"].(map[string]any)["term"].(map[string]any)
	assert.Equal(t, "Electronics", term["categories.name.keyword"])

	priceRange := filters[1].(map[string]any)["range"].(map[string]any)["price"].(map[string]any)
	assert.Equal(t, int64(100), priceRange["gte"])
	assert.Equal(t, int64(500), priceRange["lte"])
}

func TestBuildSearchBody_EmptyQueryHasNoMustClause(t *testing.T) {
	req := &domain.SearchRequest{}
	req.Normalize()

	body := buildSearchBody(req)

	fs := body["query"].(map[string]any)["function_score"].(map[string]any)
	boolQuery := fs["query"].(map[string]any)["bool"].(map[string]any)
	assert.NotContains(t, boolQuery, "must")
	assert.NotContains(t, boolQuery, "filter")
}

func TestBuildSearchBody_Pagination(t *testing.T) {
	req := &domain.SearchRequest{Page: 3, Size: 25}
	req.Normalize()

	body := buildSearchBody(req)
	assert.Equal(t, 50, body["from"])
	assert.Equal(t, 25, body["size"])
}

func TestBuildSearchBody_DefaultSortIsRelevance(t *testing.T) {
	req := &domain.SearchRequest{}
	req.Normalize()

	body := buildSearchBody(req)
	sortClause := body["sort"].([]any)
	require.Len(t, sortClause, 1)
	field := sortClause[0].(map[string]any)
	order := field["_score"].(map[string]any)
	assert.Equal(t, "desc", order["order"])
}

func TestBuildSearchBody_CategoryFacetAggregation(t *testing.T) {
	req := &domain.SearchRequest{}
	req.Normalize()

	body := buildSearchBody(req)

	categories := body["aggs"].(map[string]any)["categories"].(map[string]any)
	assert.Equal(t, "categories", categories["nested"].(map[string]any)["path"])
	terms := categories["aggs"].(map[string]any)["category_names"].(map[string]any)["terms"].(map[string]any)
	assert.Equal(t, "categories.name.keyword", terms["field"])
}

func TestBuildSimilarBody(t *testing.T) {
	body := buildSimilarBody("prod-1", []string{"Electronics"}, 10)

	assert.Equal(t, 10, body["size"])

	fs := body["query"].(map[string]any)["function_score"].(map[string]any)
	boolQuery := fs["query"].(map[string]any)["bool"].(map[string]any)

	mlt := boolQuery["must"].([]any)[0].(map[string]any)["more_like_this"].(map[string]any)
	assert.Equal(t, []string{"name", "description"}, mlt["fields"])
	like := mlt["like"].([]any)[0].(map[string]any)
	assert.Equal(t, IndexName, like["_index"])
	assert.Equal(t, "prod-1", like["_id"])
	assert.Equal(t, 1, mlt["min_term_freq"])
	assert.Equal(t, 12, mlt["max_query_terms"])

	// Category overlap is a should clause: a boost, never a requirement.
	should := boolQuery["should"].([]any)
	require.Len(t, should, 1)
	nested := should[0].(map[string]any)["nested"].(map[string]any)
	assert.Equal(t, "categories", nested["path"])
}

func TestBuildSimilarBody_NoCategories(t *testing.T) {
	body := buildSimilarBody("prod-1", nil, 10)

	fs := body["query"].(map[string]any)["function_score"].(map[string]any)
	boolQuery := fs["query"].(map[string]any)["bool"].(map[string]any)
	assert.NotContains(t, boolQuery, "should")
}

func TestBuildRecommendBody_BoostFollowsActivityType(t *testing.T) {
	body := buildRecommendBody([]string{"p1", "p2"}, domain.ActivityPurchase, 10)

	assert.Equal(t, 10, body["size"])

	fs := body["query"].(map[string]any)["function_score"].(map[string]any)
	functions := fs["functions"].([]any)
	require.Len(t, functions, 1)
	factor := functions[0].(map[string]any)["field_value_factor"].(map[string]any)
	assert.Equal(t, "purchase_count", factor["field"])
	assert.Equal(t, 2.0, factor["factor"])

	mlt := fs["query"].(map[string]any)["more_like_this"].(map[string]any)
	assert.Equal(t, []any{"p1", "p2"}, mlt["like"])

	viewBody := buildRecommendBody([]string{"p1"}, domain.ActivityView, 5)
	viewFS := viewBody["query"].(map[string]any)["function_score"].(map[string]any)
	viewFactor := viewFS["functions"].([]any)[0].(map[string]any)["field_value_factor"].(map[string]any)
	assert.Equal(t, "view_count", viewFactor["field"])
	assert.Equal(t, 1.0, viewFactor["factor"])
}

func TestBuildSuggestBody(t *testing.T) {
	body := buildSuggestBody("wire", 3)

	suggest := body["suggest"].(map[string]any)["product_suggest"].(map[string]any)
	assert.Equal(t, "wire", suggest["prefix"])
	completion := suggest["completion"].(map[string]any)
	assert.Equal(t, "name_suggest", completion["field"])
	assert.Equal(t, 3, completion["size"])
	assert.Equal(t, true, completion["skip_duplicates"])
}

func TestBuildNgramAndFuzzyBodies(t *testing.T) {
	ngram := buildNgramBody("oard", 3)
	match := ngram["query"].(map[string]any)["match"].(map[string]any)["name_ngram"].(map[string]any)
	assert.Equal(t, "oard", match["query"])
	assert.Equal(t, "ngram_analyzer", match["analyzer"])
	assert.Equal(t, 3, ngram["size"])
	assert.Equal(t, []string{"name"}, ngram["_source"])

	fuzzy := buildFuzzyBody("keybord", 3)
	clause := fuzzy["query"].(map[string]any)["fuzzy"].(map[string]any)["name"].(map[string]any)
	assert.Equal(t, "keybord", clause["value"])
	assert.Equal(t, "AUTO", clause["fuzziness"])
	assert.Equal(t, 3, fuzzy["size"])
}

func TestIndexMapping(t *testing.T) {
	m := indexMapping()

	props := m["mappings"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "completion", props["name_suggest"].(map[string]any)["type"])
	assert.Equal(t, "ngram_analyzer", props["name_ngram"].(map[string]any)["analyzer"])
	assert.Equal(t, "nested", props["categories"].(map[string]any)["type"])
	assert.Equal(t, "long", props["view_count"].(map[string]any)["type"])
	assert.Equal(t, "long", props["purchase_count"].(map[string]any)["type"])
}
