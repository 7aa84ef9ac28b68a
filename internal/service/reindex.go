package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/internal/index"
	"github.com/elanq/ecommerce-search/internal/repository"
	"github.com/elanq/ecommerce-search/internal/worker"
	"github.com/elanq/ecommerce-search/pkg/kafka"
)

var reindexRuns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reindex_runs_total",
		Help: "Total full reindex runs by result.",
	},
	[]string{"result"},
)

// EventReindexCompleted is published after a full reindex run finishes.
const EventReindexCompleted = "search.reindex.completed"

// ReindexBackend is the bulk write surface the reindexer needs.
type ReindexBackend interface {
	BulkUpsert(ctx context.Context, docs []domain.ProductDocument) ([]index.BulkItemError, error)
}

// EventPublisher publishes domain events. The Kafka producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// ReindexReport summarizes a completed reindex run.
type ReindexReport struct {
	Total   int64         `json:"total"`
	Indexed int64         `json:"indexed"`
	Failed  int64         `json:"failed"`
	Elapsed time.Duration `json:"elapsed"`
}

// BulkReindexer rebuilds the whole index from the canonical store. Products
// are streamed through a single cursor and written in fixed-size batches, so
// memory stays flat regardless of catalog size. Individual item failures are
// logged and counted without aborting the run.
type BulkReindexer struct {
	products   repository.ProductStore
	categories repository.CategoryStore
	backend    ReindexBackend
	publisher  EventPublisher
	pool       *worker.Pool
	batchSize  int
	logger     *slog.Logger

	running atomic.Bool
}

// NewBulkReindexer creates a reindexer writing batches of batchSize
// documents. publisher may be nil when event publishing is disabled.
func NewBulkReindexer(
	products repository.ProductStore,
	categories repository.CategoryStore,
	backend ReindexBackend,
	publisher EventPublisher,
	pool *worker.Pool,
	batchSize int,
	logger *slog.Logger,
) *BulkReindexer {
	if batchSize < 1 {
		batchSize = 1
	}
	return &BulkReindexer{
		products:   products,
		categories: categories,
		backend:    backend,
		publisher:  publisher,
		pool:       pool,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// Start queues a full reindex on the worker pool and returns immediately.
// It reports false when a run is already in progress or the pool rejected
// the task.
func (r *BulkReindexer) Start() bool {
	if !r.running.CompareAndSwap(false, true) {
		r.logger.Warn("reindex already running, trigger ignored")
		return false
	}

	ok := r.pool.Submit(func(ctx context.Context) {
		defer r.running.Store(false)
		if _, err := r.ReindexAll(ctx); err != nil {
			r.logger.Error("reindex run failed", "error", err)
		}
	})
	if !ok {
		r.running.Store(false)
	}
	return ok
}

// ReindexAll streams every product, projects documents and bulk-writes them
// in batches. A transport failure of a whole bulk call aborts the run;
// per-item failures within a successful call do not.
func (r *BulkReindexer) ReindexAll(ctx context.Context) (*ReindexReport, error) {
	start := time.Now()
	report := &ReindexReport{}
	batch := make([]domain.ProductDocument, 0, r.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		itemErrs, err := r.backend.BulkUpsert(ctx, batch)
		if err != nil {
			return err
		}
		for _, ie := range itemErrs {
			r.logger.Error("bulk item failed",
				"product_id", ie.ID, "type", ie.Type, "reason", ie.Reason)
		}
		report.Failed += int64(len(itemErrs))
		report.Indexed += int64(len(batch)) - int64(len(itemErrs))
		batch = batch[:0]
		return nil
	}

	err := r.products.StreamAll(ctx, func(p *domain.Product) error {
		categories, err := r.categories.GetProductCategories(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("resolve categories for %s: %w", p.ID, err)
		}
		batch = append(batch, *domain.NewProductDocument(p, categories))
		report.Total++
		if len(batch) >= r.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		reindexRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("reindex: %w", err)
	}
	if err := flush(); err != nil {
		reindexRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("reindex: %w", err)
	}

	reindexRuns.WithLabelValues("ok").Inc()
	report.Elapsed = time.Since(start)
	r.logger.Info("reindex completed",
		"total", report.Total,
		"indexed", report.Indexed,
		"failed", report.Failed,
		"elapsed", report.Elapsed,
	)
	r.publishCompleted(ctx, report)
	return report, nil
}

func (r *BulkReindexer) publishCompleted(ctx context.Context, report *ReindexReport) {
	if r.publisher == nil {
		return
	}
	event, err := kafka.NewEvent(EventReindexCompleted, "products", "index", "search-service", report)
	if err != nil {
		r.logger.Error("build reindex event failed", "error", err)
		return
	}
	if err := r.publisher.Publish(ctx, kafka.Topic("search", "reindex"), event); err != nil {
		r.logger.Error("publish reindex event failed", "error", err)
	}
}
