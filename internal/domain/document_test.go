package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductDocument(t *testing.T) {
	p := &Product{
		ID:            "prod-1",
		Name:          "Wireless Mouse",
		Description:   "ergonomic",
		Price:         2500,
		StockQuantity: 12,
		WeightGrams:   90,
		OwnerID:       "owner-1",
	}
	categories := []Category{
		{ID: "cat-1", Name: "Electronics"},
		{ID: "cat-2", Name: "Peripherals"},
	}

	doc := NewProductDocument(p, categories)

	assert.Equal(t, p.ID, doc.ID)
	assert.Equal(t, p.Price, doc.Price)
	require.Len(t, doc.Categories, 2)
	assert.Equal(t, CategoryEntry{CategoryID: "cat-1", Name: "Electronics"}, doc.Categories[0])

	// Counters are maintained by activity tracking, never by the projection.
	assert.Zero(t, doc.ViewCount)
	assert.Zero(t, doc.PurchaseCount)

	assert.Equal(t, "Wireless Mouse", doc.NameNgram)
	assert.Equal(t, []string{"Wireless Mouse", "Wireless", "Mouse"}, doc.NameSuggest)
}

func TestNewProductDocument_NoCategories(t *testing.T) {
	doc := NewProductDocument(&Product{ID: "prod-1", Name: "Lamp"}, nil)

	assert.NotNil(t, doc.Categories)
	assert.Empty(t, doc.Categories)
	// Single-word names produce a single suggester input.
	assert.Equal(t, []string{"Lamp"}, doc.NameSuggest)
}

func TestNewProductResponse_NilCategories(t *testing.T) {
	resp := NewProductResponse(&Product{ID: "prod-1"}, nil)

	assert.NotNil(t, resp.Categories)
	assert.Empty(t, resp.Categories)
}
