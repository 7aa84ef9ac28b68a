package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/elanq/ecommerce-search/internal/cache"
	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/internal/repository"
)

// ProductResolver is the cached read path from a product ID to the full API
// response shape. Search results carry only IDs and scores; everything shown
// to the client comes through here.
type ProductResolver struct {
	products   repository.ProductStore
	categories repository.CategoryStore
	cache      cache.Cache
	ttl        time.Duration
	logger     *slog.Logger
}

// NewProductResolver creates a resolver caching responses for the given TTL.
func NewProductResolver(
	products repository.ProductStore,
	categories repository.CategoryStore,
	c cache.Cache,
	ttl time.Duration,
	logger *slog.Logger,
) *ProductResolver {
	return &ProductResolver{
		products:   products,
		categories: categories,
		cache:      c,
		ttl:        ttl,
		logger:     logger,
	}
}

// GetProduct returns the response shape for a product, reading through the
// cache. Cache failures are logged and treated as misses.
func (r *ProductResolver) GetProduct(ctx context.Context, id string) (*domain.ProductResponse, error) {
	key := cache.KeyPrefixProductResponse + id

	var cached domain.ProductResponse
	ok, err := r.cache.Get(ctx, key, &cached)
	if err != nil {
		r.logger.Warn("product cache read failed", "product_id", id, "error", err)
	} else if ok {
		return &cached, nil
	}

	p, err := r.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	categories, err := r.categories.GetProductCategories(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	resp := domain.NewProductResponse(p, categories)
	if err := r.cache.Put(ctx, key, resp, r.ttl); err != nil {
		r.logger.Warn("product cache write failed", "product_id", id, "error", err)
	}
	return resp, nil
}

// Invalidate drops the cached response for a product. Called when the
// canonical record changes.
func (r *ProductResolver) Invalidate(ctx context.Context, id string) {
	if err := r.cache.Evict(ctx, cache.KeyPrefixProductResponse+id); err != nil {
		r.logger.Warn("product cache evict failed", "product_id", id, "error", err)
	}
}
