package domain

import (
	"strings"
)

// CategoryEntry is the embedded category shape stored on a product document.
type CategoryEntry struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

// ProductDocument is the denormalized projection of a product stored in the
// search index. The document ID always equals the canonical product ID, so
// every write is an idempotent upsert. Counter fields are updated in place by
// partial updates; everything else is replaced wholesale.
type ProductDocument struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         int64           `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	WeightGrams   int             `json:"weight_grams"`
	OwnerID       string          `json:"owner_id"`
	ViewCount     int64           `json:"view_count"`
	PurchaseCount int64           `json:"purchase_count"`
	Categories    []CategoryEntry `json:"categories"`

	// Precomputed fields backing the n-gram and completion-suggester
	// autocomplete strategies.
	NameNgram   string   `json:"name_ngram"`
	NameSuggest []string `json:"name_suggest"`
}

// NewProductDocument projects a canonical product and its resolved categories
// into the flat document shape the index stores. Counters start at zero; they
// are maintained separately by activity tracking.
func NewProductDocument(p *Product, categories []Category) *ProductDocument {
	entries := make([]CategoryEntry, 0, len(categories))
	for _, c := range categories {
		entries = append(entries, CategoryEntry{CategoryID: c.ID, Name: c.Name})
	}

	return &ProductDocument{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		WeightGrams:   p.WeightGrams,
		OwnerID:       p.OwnerID,
		Categories:    entries,
		NameNgram:     p.Name,
		NameSuggest:   suggestInputs(p.Name),
	}
}

// suggestInputs returns completion-suggester inputs for a product name: the
// full name plus each individual word, so "wireless mouse" completes from
// both "wir" and "mou".
func suggestInputs(name string) []string {
	inputs := []string{name}
	for _, word := range strings.Fields(name) {
		if word != name {
			inputs = append(inputs, word)
		}
	}
	return inputs
}
