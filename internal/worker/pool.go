// Package worker provides the bounded goroutine pool that runs
// fire-and-forget index maintenance tasks.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_tasks_submitted_total",
			Help: "Total tasks submitted to the worker pool by outcome.",
		},
		[]string{"outcome"},
	)
	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current number of tasks waiting in the worker queue.",
		},
	)
)

// Pool runs submitted tasks on a fixed set of goroutines. Tasks receive a
// background-derived context: callers fire and forget, so a caller's request
// context must not cancel the work.
type Pool struct {
	tasks  chan func(context.Context)
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewPool starts size workers with a queue of queueSize pending tasks.
func NewPool(size, queueSize int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &Pool{
		tasks:  make(chan func(context.Context), queueSize),
		logger: logger,
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for task := range p.tasks {
		queueDepth.Dec()
		p.invoke(task)
	}
}

func (p *Pool) invoke(task func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker task panicked", "panic", fmt.Sprint(r))
		}
	}()
	task(context.Background())
}

// Submit enqueues a task without blocking. It reports false when the pool is
// shut down or the queue is full; the task is dropped and logged in that
// case, never queued partially.
func (p *Pool) Submit(task func(context.Context)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		tasksSubmitted.WithLabelValues("rejected").Inc()
		p.logger.Warn("worker task rejected, pool shut down")
		return false
	}

	select {
	case p.tasks <- task:
		queueDepth.Inc()
		tasksSubmitted.WithLabelValues("accepted").Inc()
		return true
	default:
		tasksSubmitted.WithLabelValues("dropped").Inc()
		p.logger.Warn("worker task dropped, queue full")
		return false
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish, or
// until ctx expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}
