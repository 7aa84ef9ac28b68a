// Package cache provides the key-value cache used for autocomplete
// suggestion lists and resolved product responses. Values are stored as
// JSON so Redis and the in-memory implementation are interchangeable.
package cache

import (
	"context"
	"time"
)

// Key namespaces. Keeping them distinct lets strategies be cached and
// evicted independently.
const (
	KeyPrefixSuggestions         = "product:suggestions:"
	KeyPrefixNgramSuggestions    = "product:ngram:suggestions:"
	KeyPrefixFuzzySuggestions    = "product:fuzzy:suggestions:"
	KeyPrefixCombinedSuggestions = "product:combined:suggestions:"
	KeyPrefixProductResponse     = "product:response:"
)

// Cache is a TTL key-value store. Get reports a miss with (false, nil);
// errors are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
	Evict(ctx context.Context, key string) error
}
