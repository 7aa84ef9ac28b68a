// Package repository defines the persistence contracts for the search
// service. PostgreSQL implementations live in the postgres subpackage.
package repository

import (
	"context"
	"time"

	"github.com/elanq/ecommerce-search/internal/domain"
)

// ProductStore provides read access to canonical product records.
type ProductStore interface {
	// GetByID returns the product or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// StreamAll walks every product in stable ID order, invoking fn once
	// per row. Iteration stops at the first error fn returns.
	StreamAll(ctx context.Context, fn func(*domain.Product) error) error
}

// CategoryStore resolves the categories assigned to products.
type CategoryStore interface {
	GetProductCategories(ctx context.Context, productID string) ([]domain.Category, error)
}

// ActivityStore persists and queries user activity records.
type ActivityStore interface {
	// Insert appends an immutable activity record.
	Insert(ctx context.Context, activity *domain.UserActivity) error
	// CountByProductAndType returns the all-time count for a product.
	CountByProductAndType(ctx context.Context, productID string, activityType domain.ActivityType) (int64, error)
	// CountByProductAndTypeInRange returns the count within [from, to).
	CountByProductAndTypeInRange(ctx context.Context, productID string, activityType domain.ActivityType, from, to time.Time) (int64, error)
	// ListByUserAndTypeSince returns a user's activities of the given type
	// recorded at or after the given instant, newest first.
	ListByUserAndTypeSince(ctx context.Context, userID string, activityType domain.ActivityType, since time.Time) ([]domain.UserActivity, error)
}
