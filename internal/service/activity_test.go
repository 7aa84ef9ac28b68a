package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/internal/worker"
	apperrors "github.com/elanq/ecommerce-search/pkg/errors"
)

func newActivityFixture(t *testing.T) (*ActivityService, *fakeActivityStore, *flakyIndexerBackend) {
	t.Helper()
	store := newFakeActivityStore()
	backend := newFlakyIndexerBackend()

	// A single worker serializes the recount-then-sync tasks, so the final
	// counter value is deterministic.
	pool := worker.NewPool(1, 64, newTestLogger())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})
	writer := NewIndexWriter(backend, newFakeCategoryStore(), pool, 3, time.Millisecond, newTestLogger())
	return NewActivityService(store, writer, pool, newTestLogger()), store, backend
}

func TestActivityService_Track_RejectsInvalidType(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newActivityFixture(t)

	err := svc.Track(ctx, uuid.New().String(), "user-1", domain.ActivityType("WISHLIST"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestActivityService_Track_RequiresIDs(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newActivityFixture(t)

	assert.Error(t, svc.Track(ctx, "", "user-1", domain.ActivityView))
	assert.Error(t, svc.Track(ctx, uuid.New().String(), "", domain.ActivityView))
}

func TestActivityService_Track_SyncsCounterToIndex(t *testing.T) {
	ctx := context.Background()
	svc, store, backend := newActivityFixture(t)

	productID := uuid.New().String()
	require.NoError(t, svc.Track(ctx, productID, "user-1", domain.ActivityView))
	require.NoError(t, svc.Track(ctx, productID, "user-2", domain.ActivityView))

	assert.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.counts[productID] == 2
	}, 2*time.Second, 5*time.Millisecond)

	count, err := store.CountByProductAndType(ctx, productID, domain.ActivityView)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestActivityService_RecentByUser_WindowsHistory(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newActivityFixture(t)

	productID := uuid.New().String()
	now := time.Now().UTC()

	require.NoError(t, store.Insert(ctx, &domain.UserActivity{
		ProductID: productID, UserID: "user-1", Type: domain.ActivityView, CreatedAt: now,
	}))
	require.NoError(t, store.Insert(ctx, &domain.UserActivity{
		ProductID: productID, UserID: "user-1", Type: domain.ActivityView, CreatedAt: now.Add(-60 * 24 * time.Hour),
	}))
	require.NoError(t, store.Insert(ctx, &domain.UserActivity{
		ProductID: productID, UserID: "user-2", Type: domain.ActivityView, CreatedAt: now,
	}))

	recent, err := svc.RecentByUser(ctx, "user-1", domain.ActivityView)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "user-1", recent[0].UserID)
}

func TestTopProductIDs(t *testing.T) {
	activities := []domain.UserActivity{
		{ProductID: "b"}, {ProductID: "a"}, {ProductID: "b"},
		{ProductID: "c"}, {ProductID: "b"}, {ProductID: "a"},
	}

	assert.Equal(t, []string{"b", "a", "c"}, TopProductIDs(activities, 5))
	assert.Equal(t, []string{"b", "a"}, TopProductIDs(activities, 2))
	assert.Empty(t, TopProductIDs(nil, 5))
}

func TestActivityService_CountInRange(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newActivityFixture(t)

	productID := uuid.New().String()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Insert(ctx, &domain.UserActivity{
			ProductID: productID, UserID: "user-1", Type: domain.ActivityPurchase,
			CreatedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}))
	}

	count, err := svc.CountInRange(ctx, productID, domain.ActivityPurchase, base, base.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
