package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/elanq/ecommerce-search/pkg/config"
	"github.com/elanq/ecommerce-search/pkg/database"
)

// Config holds all configuration for the search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"SEARCH_HTTP_PORT" envDefault:"8010"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Search backend selection (elasticsearch or memory)
	SearchBackend    string `env:"SEARCH_BACKEND" envDefault:"elasticsearch"`
	ElasticsearchURL string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`

	// Index write retry policy
	IndexRetryMaxAttempts uint          `env:"INDEX_RETRY_MAX_ATTEMPTS" envDefault:"3"`
	IndexRetryWait        time.Duration `env:"INDEX_RETRY_WAIT" envDefault:"5s"`

	// Bulk reindex
	ReindexBatchSize int `env:"REINDEX_BATCH_SIZE" envDefault:"100"`

	// Result caps
	SimilarLimit            int `env:"SIMILAR_LIMIT" envDefault:"10"`
	RecommendationLimit     int `env:"RECOMMENDATION_LIMIT" envDefault:"10"`
	RecommendationSeeds     int `env:"RECOMMENDATION_SEEDS" envDefault:"5"`
	SuggestionLimit         int `env:"SUGGESTION_LIMIT" envDefault:"3"`
	CombinedSuggestionLimit int `env:"COMBINED_SUGGESTION_LIMIT" envDefault:"5"`

	// Cache backend selection (redis or memory) and TTLs
	CacheBackend       string        `env:"CACHE_BACKEND" envDefault:"redis"`
	SuggestionCacheTTL time.Duration `env:"SUGGESTION_CACHE_TTL" envDefault:"10m"`
	ProductCacheTTL    time.Duration `env:"PRODUCT_CACHE_TTL" envDefault:"5m"`

	// Worker pool for async index maintenance
	WorkerPoolSize  int `env:"WORKER_POOL_SIZE" envDefault:"4"`
	WorkerQueueSize int `env:"WORKER_QUEUE_SIZE" envDefault:"256"`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"ecommerce"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"ecommerce_secret"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"ecommerce"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.IndexRetryMaxAttempts < 1 {
		return fmt.Errorf("invalid index retry attempts: %d", c.IndexRetryMaxAttempts)
	}
	if c.ReindexBatchSize < 1 {
		return fmt.Errorf("invalid reindex batch size: %d", c.ReindexBatchSize)
	}
	return nil
}

// PostgresConfig returns the pool configuration for the canonical store.
func (c *Config) PostgresConfig() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPassword
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSLMode
	return pg
}

// RedisConfig returns the Redis client configuration.
func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
