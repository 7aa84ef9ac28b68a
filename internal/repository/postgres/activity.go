package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/pkg/database"
)

// ActivityRepository implements repository.ActivityStore using PostgreSQL.
type ActivityRepository struct {
	pool database.DBTX
}

// NewActivityRepository creates a new PostgreSQL-backed activity repository.
func NewActivityRepository(pool database.DBTX) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// Insert appends an immutable activity record.
func (r *ActivityRepository) Insert(ctx context.Context, activity *domain.UserActivity) error {
	query := `
		INSERT INTO user_activities (product_id, user_id, activity_type, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		activity.ProductID,
		activity.UserID,
		activity.Type,
		activity.CreatedAt,
	).Scan(&activity.ID)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// CountByProductAndType returns the all-time activity count for a product.
func (r *ActivityRepository) CountByProductAndType(ctx context.Context, productID string, activityType domain.ActivityType) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM user_activities
		WHERE product_id = $1 AND activity_type = $2`

	var count int64
	if err := r.pool.QueryRow(ctx, query, productID, activityType).Scan(&count); err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return count, nil
}

// CountByProductAndTypeInRange returns the activity count within [from, to).
func (r *ActivityRepository) CountByProductAndTypeInRange(ctx context.Context, productID string, activityType domain.ActivityType, from, to time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM user_activities
		WHERE product_id = $1 AND activity_type = $2 AND created_at >= $3 AND created_at < $4`

	var count int64
	if err := r.pool.QueryRow(ctx, query, productID, activityType, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("count activities in range: %w", err)
	}
	return count, nil
}

// ListByUserAndTypeSince returns a user's activities of the given type
// recorded at or after the given instant, newest first.
func (r *ActivityRepository) ListByUserAndTypeSince(ctx context.Context, userID string, activityType domain.ActivityType, since time.Time) ([]domain.UserActivity, error) {
	query := `
		SELECT id, product_id, user_id, activity_type, created_at
		FROM user_activities
		WHERE user_id = $1 AND activity_type = $2 AND created_at >= $3
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID, activityType, since)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	activities := []domain.UserActivity{}
	for rows.Next() {
		var a domain.UserActivity
		if err := rows.Scan(&a.ID, &a.ProductID, &a.UserID, &a.Type, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("list activities: scan: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}
