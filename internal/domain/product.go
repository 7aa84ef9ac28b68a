package domain

import (
	"time"
)

// Product represents a canonical product record from the relational store.
// The search index is a derived projection of this data and is always
// rebuildable from it.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         int64     `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	WeightGrams   int       `json:"weight_grams"`
	OwnerID       string    `json:"owner_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Category is a canonical category record.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductResponse is the API shape of a product, with categories resolved.
type ProductResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Price         int64      `json:"price"`
	StockQuantity int        `json:"stock_quantity"`
	WeightGrams   int        `json:"weight_grams"`
	Categories    []Category `json:"categories"`
}

// NewProductResponse builds the API shape from a product and its categories.
func NewProductResponse(p *Product, categories []Category) *ProductResponse {
	if categories == nil {
		categories = []Category{}
	}
	return &ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		WeightGrams:   p.WeightGrams,
		Categories:    categories,
	}
}
