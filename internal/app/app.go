// Package app wires together all dependencies and runs the search service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/elanq/ecommerce-search/internal/cache"
	"github.com/elanq/ecommerce-search/internal/config"
	"github.com/elanq/ecommerce-search/internal/event"
	handler "github.com/elanq/ecommerce-search/internal/handler/http"
	"github.com/elanq/ecommerce-search/internal/index"
	esindex "github.com/elanq/ecommerce-search/internal/index/elasticsearch"
	"github.com/elanq/ecommerce-search/internal/index/memory"
	"github.com/elanq/ecommerce-search/internal/repository/postgres"
	"github.com/elanq/ecommerce-search/internal/service"
	"github.com/elanq/ecommerce-search/internal/worker"
	"github.com/elanq/ecommerce-search/pkg/database"
	"github.com/elanq/ecommerce-search/pkg/health"
	pkgkafka "github.com/elanq/ecommerce-search/pkg/kafka"
)

// App holds the long-lived components of the search service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *worker.Pool
	pgPool     *pgxpool.Pool
	redis      *redis.Client
	producer   *pkgkafka.Producer
	consumers  []*pkgkafka.Consumer
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Search backend selection.
	var backend index.Backend
	switch cfg.SearchBackend {
	case "elasticsearch":
		eng, err := esindex.New(cfg.ElasticsearchURL, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch backend: %w", err)
		}
		backend = eng
		logger.Info("elasticsearch backend initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", esindex.IndexName),
		)
	default:
		backend = memory.New()
		logger.Info("in-memory backend initialized")
	}

	// Canonical store.
	pgCfg := cfg.PostgresConfig()
	pgPool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}

	products := postgres.NewProductRepository(pgPool)
	categories := postgres.NewCategoryRepository(pgPool)
	activities := postgres.NewActivityRepository(pgPool)

	// Cache backend selection.
	var (
		cacheImpl   cache.Cache
		redisClient *redis.Client
	)
	switch cfg.CacheBackend {
	case "redis":
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisConfig())
		if err != nil {
			return nil, fmt.Errorf("init redis client: %w", err)
		}
		cacheImpl = cache.NewRedisCache(redisClient)
		logger.Info("redis cache initialized", slog.String("addr", cfg.RedisConfig().Addr()))
	default:
		cacheImpl = cache.NewMemoryCache()
		logger.Info("in-memory cache initialized")
	}

	// Kafka producer for reindex completion events.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)

	// Worker pool and service layer.
	pool := worker.NewPool(cfg.WorkerPoolSize, cfg.WorkerQueueSize, logger)

	writer := service.NewIndexWriter(backend, categories, pool, cfg.IndexRetryMaxAttempts, cfg.IndexRetryWait, logger)
	activityService := service.NewActivityService(activities, writer, pool, logger)
	resolver := service.NewProductResolver(products, categories, cacheImpl, cfg.ProductCacheTTL, logger)
	searchService := service.NewSearchService(
		backend, resolver, activityService,
		cfg.SimilarLimit, cfg.RecommendationLimit, cfg.RecommendationSeeds,
		logger,
	)
	autocompleteService := service.NewAutocompleteService(
		backend, cacheImpl, cfg.SuggestionCacheTTL,
		cfg.SuggestionLimit, cfg.CombinedSuggestionLimit,
		logger,
	)
	reindexer := service.NewBulkReindexer(products, categories, backend, producer, pool, cfg.ReindexBatchSize, logger)

	// Kafka consumers for product and activity events.
	eventConsumer := event.NewConsumer(writer, activityService, resolver, logger)

	topics := []string{
		event.TopicProductCreated,
		event.TopicProductUpdated,
		event.TopicProductDeleted,
		event.TopicActivityRecorded,
	}

	var consumers []*pkgkafka.Consumer
	for _, topic := range topics {
		consumerCfg := pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  "search-service",
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}
		consumers = append(consumers, pkgkafka.NewConsumer(consumerCfg, eventConsumer.Handle, logger))
	}
	logger.Info("kafka consumers initialized",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.Int("topic_count", len(topics)),
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("index", backend.Ping)
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pgPool.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	router := handler.NewRouter(searchService, autocompleteService, activityService, reindexer, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		pgPool:     pgPool,
		redis:      redisClient,
		producer:   producer,
		consumers:  consumers,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and Kafka consumers, blocking until the context
// is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components: HTTP first so no new work
// arrives, then the worker pool so queued index writes drain, then the
// stores.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.pool.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("worker pool shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.pgPool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
