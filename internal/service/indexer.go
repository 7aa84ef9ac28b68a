package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/internal/index"
	"github.com/elanq/ecommerce-search/internal/repository"
	"github.com/elanq/ecommerce-search/internal/worker"
)

var indexWrites = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "index_writes_total",
		Help: "Total index write operations by operation and result.",
	},
	[]string{"operation", "result"},
)

// IndexerBackend is the write surface the index writer needs from the
// search backend.
type IndexerBackend interface {
	Upsert(ctx context.Context, doc *domain.ProductDocument) error
	Delete(ctx context.Context, id string) error
	UpdateActivityCount(ctx context.Context, id string, activityType domain.ActivityType, count int64) error
}

// IndexWriter keeps the search index in sync with the canonical store. All
// writes retry transient failures with a fixed wait; a write that still
// fails is logged and dropped, since the index is rebuildable and eventual
// consistency is the contract.
type IndexWriter struct {
	backend     IndexerBackend
	categories  repository.CategoryStore
	pool        *worker.Pool
	logger      *slog.Logger
	maxAttempts uint
	wait        time.Duration
}

// NewIndexWriter creates an index writer with the given retry policy.
func NewIndexWriter(
	backend IndexerBackend,
	categories repository.CategoryStore,
	pool *worker.Pool,
	maxAttempts uint,
	wait time.Duration,
	logger *slog.Logger,
) *IndexWriter {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &IndexWriter{
		backend:     backend,
		categories:  categories,
		pool:        pool,
		logger:      logger,
		maxAttempts: maxAttempts,
		wait:        wait,
	}
}

// withRetry runs fn up to maxAttempts times with a constant wait between
// attempts. Only transient backend failures are retried.
func (w *IndexWriter) withRetry(ctx context.Context, fn func(context.Context) error) error {
	operation := func() (struct{}, error) {
		err := fn(ctx)
		if err != nil && !errors.Is(err, index.ErrTransient) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(w.wait)),
		backoff.WithMaxTries(w.maxAttempts),
	)
	return err
}

// IndexProduct resolves the product's categories, projects the document and
// upserts it.
func (w *IndexWriter) IndexProduct(ctx context.Context, p *domain.Product) error {
	categories, err := w.categories.GetProductCategories(ctx, p.ID)
	if err != nil {
		indexWrites.WithLabelValues("upsert", "error").Inc()
		return fmt.Errorf("resolve categories for %s: %w", p.ID, err)
	}

	doc := domain.NewProductDocument(p, categories)
	if err := w.withRetry(ctx, func(ctx context.Context) error {
		return w.backend.Upsert(ctx, doc)
	}); err != nil {
		indexWrites.WithLabelValues("upsert", "error").Inc()
		return err
	}

	indexWrites.WithLabelValues("upsert", "ok").Inc()
	return nil
}

// RemoveProduct deletes the product's document.
func (w *IndexWriter) RemoveProduct(ctx context.Context, productID string) error {
	if err := w.withRetry(ctx, func(ctx context.Context) error {
		return w.backend.Delete(ctx, productID)
	}); err != nil {
		indexWrites.WithLabelValues("delete", "error").Inc()
		return err
	}
	indexWrites.WithLabelValues("delete", "ok").Inc()
	return nil
}

// SyncActivityCount overwrites one popularity counter on the document.
func (w *IndexWriter) SyncActivityCount(ctx context.Context, productID string, activityType domain.ActivityType, count int64) error {
	if err := w.withRetry(ctx, func(ctx context.Context) error {
		return w.backend.UpdateActivityCount(ctx, productID, activityType, count)
	}); err != nil {
		indexWrites.WithLabelValues("update_count", "error").Inc()
		return err
	}
	indexWrites.WithLabelValues("update_count", "ok").Inc()
	return nil
}

// ScheduleIndex queues an upsert on the worker pool. Failures after retries
// are logged and dropped; the caller never observes them.
func (w *IndexWriter) ScheduleIndex(p *domain.Product) {
	product := *p
	w.pool.Submit(func(ctx context.Context) {
		if err := w.IndexProduct(ctx, &product); err != nil {
			w.logger.Error("index product failed", "product_id", product.ID, "error", err)
		}
	})
}

// ScheduleRemove queues a delete on the worker pool.
func (w *IndexWriter) ScheduleRemove(productID string) {
	w.pool.Submit(func(ctx context.Context) {
		if err := w.RemoveProduct(ctx, productID); err != nil {
			w.logger.Error("remove product from index failed", "product_id", productID, "error", err)
		}
	})
}
