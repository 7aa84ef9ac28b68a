package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/internal/repository"
	"github.com/elanq/ecommerce-search/internal/worker"
	apperrors "github.com/elanq/ecommerce-search/pkg/errors"
)

// activityHistoryWindow is how far back recommendation seeds look.
const activityHistoryWindow = 30 * 24 * time.Hour

// ActivityService records user interactions and keeps the per-product
// popularity counters on the index in sync. Recording is fire-and-forget:
// the caller gets an answer as soon as the record is queued.
type ActivityService struct {
	store  repository.ActivityStore
	writer *IndexWriter
	pool   *worker.Pool
	logger *slog.Logger
}

// NewActivityService creates an activity service.
func NewActivityService(store repository.ActivityStore, writer *IndexWriter, pool *worker.Pool, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		store:  store,
		writer: writer,
		pool:   pool,
		logger: logger,
	}
}

// Track validates and queues an activity record. The persisted record, the
// recount and the index counter update all happen on the worker pool; their
// failures are logged, never surfaced.
func (s *ActivityService) Track(ctx context.Context, productID, userID string, activityType domain.ActivityType) error {
	if !domain.IsValidActivityType(activityType) {
		return apperrors.InvalidInput("unsupported activity type: " + string(activityType))
	}
	if productID == "" {
		return apperrors.InvalidInput("product_id is required")
	}
	if userID == "" {
		return apperrors.InvalidInput("user_id is required")
	}

	activity := &domain.UserActivity{
		ProductID: productID,
		UserID:    userID,
		Type:      activityType,
		CreatedAt: time.Now().UTC(),
	}

	s.pool.Submit(func(ctx context.Context) {
		s.record(ctx, activity)
	})
	return nil
}

// record persists the activity, recounts the product's total for that type
// and pushes the fresh count to the index.
func (s *ActivityService) record(ctx context.Context, activity *domain.UserActivity) {
	if err := s.store.Insert(ctx, activity); err != nil {
		s.logger.Error("record activity failed",
			"product_id", activity.ProductID, "type", activity.Type, "error", err)
		return
	}

	count, err := s.store.CountByProductAndType(ctx, activity.ProductID, activity.Type)
	if err != nil {
		s.logger.Error("count activities failed",
			"product_id", activity.ProductID, "type", activity.Type, "error", err)
		return
	}

	if err := s.writer.SyncActivityCount(ctx, activity.ProductID, activity.Type, count); err != nil {
		s.logger.Error("sync activity count failed",
			"product_id", activity.ProductID, "type", activity.Type, "error", err)
	}
}

// RecentByUser returns the user's activities of the given type within the
// recommendation history window, newest first.
func (s *ActivityService) RecentByUser(ctx context.Context, userID string, activityType domain.ActivityType) ([]domain.UserActivity, error) {
	if !domain.IsValidActivityType(activityType) {
		return nil, apperrors.InvalidInput("unsupported activity type: " + string(activityType))
	}
	since := time.Now().UTC().Add(-activityHistoryWindow)
	return s.store.ListByUserAndTypeSince(ctx, userID, activityType, since)
}

// Count returns the all-time activity count for a product.
func (s *ActivityService) Count(ctx context.Context, productID string, activityType domain.ActivityType) (int64, error) {
	if !domain.IsValidActivityType(activityType) {
		return 0, apperrors.InvalidInput("unsupported activity type: " + string(activityType))
	}
	return s.store.CountByProductAndType(ctx, productID, activityType)
}

// CountInRange returns the activity count for a product within [from, to).
func (s *ActivityService) CountInRange(ctx context.Context, productID string, activityType domain.ActivityType, from, to time.Time) (int64, error) {
	if !domain.IsValidActivityType(activityType) {
		return 0, apperrors.InvalidInput("unsupported activity type: " + string(activityType))
	}
	return s.store.CountByProductAndTypeInRange(ctx, productID, activityType, from, to)
}

// TopProductIDs returns the most frequent product IDs in the given
// activities, most frequent first, capped at limit. Ties break on ID for
// stable output.
func TopProductIDs(activities []domain.UserActivity, limit int) []string {
	counts := map[string]int{}
	for i := range activities {
		counts[activities[i].ProductID]++
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] == counts[ids[j]] {
			return ids[i] < ids[j]
		}
		return counts[ids[i]] > counts[ids[j]]
	})

	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}
