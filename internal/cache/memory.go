package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache implements Cache in process, for local runs and tests. Values
// go through JSON like the Redis implementation so both behave identically.
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates an in-memory cache that sweeps expired entries
// every minute.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{store: gocache.New(gocache.NoExpiration, time.Minute)}
}

// Get loads and decodes the value stored under key into dest.
func (c *MemoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return false, nil
	}
	data, ok := v.([]byte)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("memory cache get: decode: %w", err)
	}
	return true, nil
}

// Put encodes and stores the value under key with the given TTL.
func (c *MemoryCache) Put(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memory cache put: encode: %w", err)
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(key, data, ttl)
	return nil
}

// Evict removes the value stored under key.
func (c *MemoryCache) Evict(_ context.Context, key string) error {
	c.store.Delete(key)
	return nil
}
