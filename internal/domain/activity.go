package domain

import (
	"time"
)

// ActivityType classifies a user interaction with a product.
type ActivityType string

// Supported activity types.
const (
	ActivityView     ActivityType = "VIEW"
	ActivityPurchase ActivityType = "PURCHASE"
)

// IsValidActivityType reports whether the given type is one of the
// supported activity types.
func IsValidActivityType(t ActivityType) bool {
	return t == ActivityView || t == ActivityPurchase
}

// UserActivity is an immutable record of a single product interaction. It
// feeds both the per-product popularity counters and a user's rolling
// recent-activity history.
type UserActivity struct {
	ID        int64        `json:"id"`
	ProductID string       `json:"product_id"`
	UserID    string       `json:"user_id"`
	Type      ActivityType `json:"activity_type"`
	CreatedAt time.Time    `json:"created_at"`
}
