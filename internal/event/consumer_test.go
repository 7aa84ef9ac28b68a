package event

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elanq/ecommerce-search/internal/cache"
	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/internal/index/memory"
	"github.com/elanq/ecommerce-search/internal/service"
	"github.com/elanq/ecommerce-search/internal/worker"
	apperrors "github.com/elanq/ecommerce-search/pkg/errors"
	pkgkafka "github.com/elanq/ecommerce-search/pkg/kafka"
)

type stubProductStore struct{}

func (stubProductStore) GetByID(_ context.Context, id string) (*domain.Product, error) {
	return nil, apperrors.NotFound("product", id)
}

func (stubProductStore) StreamAll(context.Context, func(*domain.Product) error) error {
	return nil
}

type stubCategoryStore struct{}

func (stubCategoryStore) GetProductCategories(context.Context, string) ([]domain.Category, error) {
	return []domain.Category{}, nil
}

type stubActivityStore struct {
	mu       sync.Mutex
	inserted []domain.UserActivity
}

func (s *stubActivityStore) Insert(_ context.Context, a *domain.UserActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = int64(len(s.inserted) + 1)
	s.inserted = append(s.inserted, *a)
	return nil
}

func (s *stubActivityStore) CountByProductAndType(_ context.Context, productID string, activityType domain.ActivityType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.inserted {
		if a.ProductID == productID && a.Type == activityType {
			n++
		}
	}
	return n, nil
}

func (s *stubActivityStore) CountByProductAndTypeInRange(context.Context, string, domain.ActivityType, time.Time, time.Time) (int64, error) {
	return 0, nil
}

func (s *stubActivityStore) ListByUserAndTypeSince(context.Context, string, domain.ActivityType, time.Time) ([]domain.UserActivity, error) {
	return []domain.UserActivity{}, nil
}

type consumerFixture struct {
	consumer *Consumer
	engine   *memory.Engine
	store    *stubActivityStore
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine := memory.New()
	store := &stubActivityStore{}

	pool := worker.NewPool(1, 64, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})

	writer := service.NewIndexWriter(engine, stubCategoryStore{}, pool, 3, time.Millisecond, logger)
	resolver := service.NewProductResolver(stubProductStore{}, stubCategoryStore{}, cache.NewMemoryCache(), time.Minute, logger)
	activities := service.NewActivityService(store, writer, pool, logger)

	return &consumerFixture{
		consumer: NewConsumer(writer, activities, resolver, logger),
		engine:   engine,
		store:    store,
	}
}

func (fx *consumerFixture) search(t *testing.T, query string) int {
	t.Helper()
	res, err := fx.engine.Search(context.Background(), &domain.SearchRequest{Query: query, Page: 1, Size: 10})
	require.NoError(t, err)
	return len(res.Hits)
}

func TestConsumer_ProductCreatedIndexesDocument(t *testing.T) {
	ctx := context.Background()
	fx := newConsumerFixture(t)

	id := uuid.New().String()
	ev, err := pkgkafka.NewEvent(TopicProductCreated, id, "product", "product-service", ProductEventData{
		ID:    id,
		Name:  "Wireless Mouse",
		Price: 2500,
	})
	require.NoError(t, err)

	require.NoError(t, fx.consumer.Handle(ctx, ev))

	assert.Eventually(t, func() bool {
		return fx.search(t, "mouse") == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConsumer_ProductDeletedRemovesDocument(t *testing.T) {
	ctx := context.Background()
	fx := newConsumerFixture(t)

	id := uuid.New().String()
	require.NoError(t, fx.engine.Upsert(ctx, domain.NewProductDocument(&domain.Product{
		ID: id, Name: "Wireless Mouse",
	}, nil)))
	require.Equal(t, 1, fx.search(t, "mouse"))

	ev, err := pkgkafka.NewEvent(TopicProductDeleted, id, "product", "product-service", ProductDeletedData{ID: id})
	require.NoError(t, err)

	require.NoError(t, fx.consumer.Handle(ctx, ev))

	assert.Eventually(t, func() bool {
		return fx.search(t, "mouse") == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConsumer_ActivityRecorded(t *testing.T) {
	ctx := context.Background()
	fx := newConsumerFixture(t)

	productID := uuid.New().String()
	ev, err := pkgkafka.NewEvent(TopicActivityRecorded, productID, "activity", "order-service", ActivityEventData{
		ProductID:    productID,
		UserID:       "user-1",
		ActivityType: "PURCHASE",
	})
	require.NoError(t, err)

	require.NoError(t, fx.consumer.Handle(ctx, ev))

	assert.Eventually(t, func() bool {
		count, err := fx.store.CountByProductAndType(ctx, productID, domain.ActivityPurchase)
		return err == nil && count == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConsumer_InvalidActivityIsSkippedNotRetried(t *testing.T) {
	ctx := context.Background()
	fx := newConsumerFixture(t)

	ev, err := pkgkafka.NewEvent(TopicActivityRecorded, "p", "activity", "order-service", ActivityEventData{
		ProductID:    uuid.New().String(),
		UserID:       "user-1",
		ActivityType: "WISHLIST",
	})
	require.NoError(t, err)

	// A malformed event must not bubble an error, or the consumer would
	// redeliver it forever.
	assert.NoError(t, fx.consumer.Handle(ctx, ev))
	fx.store.mu.Lock()
	defer fx.store.mu.Unlock()
	assert.Empty(t, fx.store.inserted)
}

func TestConsumer_UnknownEventTypeIgnored(t *testing.T) {
	ctx := context.Background()
	fx := newConsumerFixture(t)

	ev, err := pkgkafka.NewEvent("ecommerce.order.created", "o", "order", "order-service", map[string]string{})
	require.NoError(t, err)

	assert.NoError(t, fx.consumer.Handle(ctx, ev))
}
