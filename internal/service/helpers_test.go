package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/internal/index"
	"github.com/elanq/ecommerce-search/internal/worker"
	apperrors "github.com/elanq/ecommerce-search/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPool(t *testing.T) *worker.Pool {
	t.Helper()
	pool := worker.NewPool(2, 64, newTestLogger())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})
	return pool
}

// fakeProductStore is an in-memory repository.ProductStore.
type fakeProductStore struct {
	mu       sync.Mutex
	products map[string]domain.Product
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{products: map[string]domain.Product{}}
}

func (s *fakeProductStore) add(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *fakeProductStore) GetByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return &p, nil
}

func (s *fakeProductStore) StreamAll(_ context.Context, fn func(*domain.Product) error) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		products = append(products, s.products[id])
	}
	s.mu.Unlock()

	for i := range products {
		if err := fn(&products[i]); err != nil {
			return err
		}
	}
	return nil
}

// fakeCategoryStore is an in-memory repository.CategoryStore.
type fakeCategoryStore struct {
	mu        sync.Mutex
	byProduct map[string][]domain.Category
}

func newFakeCategoryStore() *fakeCategoryStore {
	return &fakeCategoryStore{byProduct: map[string][]domain.Category{}}
}

func (s *fakeCategoryStore) assign(productID string, categories ...domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byProduct[productID] = categories
}

func (s *fakeCategoryStore) GetProductCategories(_ context.Context, productID string) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	categories, ok := s.byProduct[productID]
	if !ok {
		return []domain.Category{}, nil
	}
	return categories, nil
}

// fakeActivityStore is an in-memory repository.ActivityStore.
type fakeActivityStore struct {
	mu         sync.Mutex
	activities []domain.UserActivity
	nextID     int64
}

func newFakeActivityStore() *fakeActivityStore {
	return &fakeActivityStore{}
}

func (s *fakeActivityStore) Insert(_ context.Context, activity *domain.UserActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	activity.ID = s.nextID
	s.activities = append(s.activities, *activity)
	return nil
}

func (s *fakeActivityStore) CountByProductAndType(_ context.Context, productID string, activityType domain.ActivityType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for i := range s.activities {
		if s.activities[i].ProductID == productID && s.activities[i].Type == activityType {
			count++
		}
	}
	return count, nil
}

func (s *fakeActivityStore) CountByProductAndTypeInRange(_ context.Context, productID string, activityType domain.ActivityType, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for i := range s.activities {
		a := s.activities[i]
		if a.ProductID == productID && a.Type == activityType &&
			!a.CreatedAt.Before(from) && a.CreatedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (s *fakeActivityStore) ListByUserAndTypeSince(_ context.Context, userID string, activityType domain.ActivityType, since time.Time) ([]domain.UserActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.UserActivity{}
	for i := range s.activities {
		a := s.activities[i]
		if a.UserID == userID && a.Type == activityType && !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// flakyIndexerBackend fails the first transientFailures calls of every
// operation with a transient error, then succeeds.
type flakyIndexerBackend struct {
	mu                sync.Mutex
	transientFailures int
	permanentErr      error
	calls             int
	docs              map[string]domain.ProductDocument
	counts            map[string]int64
}

func newFlakyIndexerBackend() *flakyIndexerBackend {
	return &flakyIndexerBackend{
		docs:   map[string]domain.ProductDocument{},
		counts: map[string]int64{},
	}
}

func (b *flakyIndexerBackend) fail() error {
	b.calls++
	if b.permanentErr != nil {
		return b.permanentErr
	}
	if b.calls <= b.transientFailures {
		return fmt.Errorf("backend down: %w", index.ErrTransient)
	}
	return nil
}

func (b *flakyIndexerBackend) Upsert(_ context.Context, doc *domain.ProductDocument) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return err
	}
	b.docs[doc.ID] = *doc
	return nil
}

func (b *flakyIndexerBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return err
	}
	delete(b.docs, id)
	return nil
}

func (b *flakyIndexerBackend) UpdateActivityCount(_ context.Context, id string, _ domain.ActivityType, count int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return err
	}
	b.counts[id] = count
	return nil
}

func (b *flakyIndexerBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// recordingBulkBackend captures every bulk batch and can fail selected IDs.
type recordingBulkBackend struct {
	mu      sync.Mutex
	batches [][]domain.ProductDocument
	failIDs map[string]bool
	err     error
}

func newRecordingBulkBackend() *recordingBulkBackend {
	return &recordingBulkBackend{failIDs: map[string]bool{}}
}

func (b *recordingBulkBackend) BulkUpsert(_ context.Context, docs []domain.ProductDocument) ([]index.BulkItemError, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	batch := make([]domain.ProductDocument, len(docs))
	copy(batch, docs)
	b.batches = append(b.batches, batch)

	var itemErrs []index.BulkItemError
	for i := range docs {
		if b.failIDs[docs[i].ID] {
			itemErrs = append(itemErrs, index.BulkItemError{
				ID: docs[i].ID, Type: "mapper_parsing_exception", Reason: "bad field",
			})
		}
	}
	return itemErrs, nil
}

// stubSuggester returns canned suggestion lists and counts calls per
// strategy.
type stubSuggester struct {
	mu     sync.Mutex
	prefix []string
	ngram  []string
	fuzzy  []string
	err    error
	calls  map[string]int
}

func newStubSuggester() *stubSuggester {
	return &stubSuggester{calls: map[string]int{}}
}

func (s *stubSuggester) Suggest(_ context.Context, _ string, _ int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[StrategyPrefix]++
	return s.prefix, s.err
}

func (s *stubSuggester) NgramSuggest(_ context.Context, _ string, _ int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[StrategyNgram]++
	return s.ngram, s.err
}

func (s *stubSuggester) FuzzySuggest(_ context.Context, _ string, _ int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[StrategyFuzzy]++
	return s.fuzzy, s.err
}

func (s *stubSuggester) callCount(strategy string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[strategy]
}
