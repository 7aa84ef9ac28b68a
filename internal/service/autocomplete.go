package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/elanq/ecommerce-search/internal/cache"
)

// Autocomplete strategy names, used in cache keys, logs and the HTTP API.
const (
	StrategyPrefix   = "prefix"
	StrategyNgram    = "ngram"
	StrategyFuzzy    = "fuzzy"
	StrategyCombined = "combined"
)

// Suggester is the autocomplete surface the service needs from the index.
type Suggester interface {
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)
	NgramSuggest(ctx context.Context, query string, limit int) ([]string, error)
	FuzzySuggest(ctx context.Context, query string, limit int) ([]string, error)
}

// AutocompleteService serves suggestion lists. Every strategy is fault
// tolerant: index failures degrade to an empty list, never an error, and a
// circuit breaker keeps a struggling index from being hammered. Results are
// cached per strategy and query.
type AutocompleteService struct {
	suggester     Suggester
	cache         cache.Cache
	breaker       *gobreaker.CircuitBreaker[[]string]
	ttl           time.Duration
	strategyLimit int
	combinedLimit int
	logger        *slog.Logger
}

// NewAutocompleteService creates an autocomplete service. strategyLimit
// caps each individual strategy, combinedLimit the merged cascade.
func NewAutocompleteService(
	suggester Suggester,
	c cache.Cache,
	ttl time.Duration,
	strategyLimit, combinedLimit int,
	logger *slog.Logger,
) *AutocompleteService {
	breaker := gobreaker.NewCircuitBreaker[[]string](gobreaker.Settings{
		Name:    "autocomplete-index",
		Timeout: 15 * time.Second,
	})

	return &AutocompleteService{
		suggester:     suggester,
		cache:         c,
		breaker:       breaker,
		ttl:           ttl,
		strategyLimit: strategyLimit,
		combinedLimit: combinedLimit,
		logger:        logger,
	}
}

// Prefix returns completion-suggester matches for the query.
func (s *AutocompleteService) Prefix(ctx context.Context, query string) []string {
	return s.cached(ctx, cache.KeyPrefixSuggestions+query, func(ctx context.Context) []string {
		return s.fetch(ctx, StrategyPrefix, query, s.suggester.Suggest)
	})
}

// Ngram returns partial-match suggestions for the query.
func (s *AutocompleteService) Ngram(ctx context.Context, query string) []string {
	return s.cached(ctx, cache.KeyPrefixNgramSuggestions+query, func(ctx context.Context) []string {
		return s.fetch(ctx, StrategyNgram, query, s.suggester.NgramSuggest)
	})
}

// Fuzzy returns typo-tolerant suggestions for the query.
func (s *AutocompleteService) Fuzzy(ctx context.Context, query string) []string {
	return s.cached(ctx, cache.KeyPrefixFuzzySuggestions+query, func(ctx context.Context) []string {
		return s.fetch(ctx, StrategyFuzzy, query, s.suggester.FuzzySuggest)
	})
}

// Combined cascades prefix, then n-gram, then fuzzy, stopping as soon as
// the merged distinct list reaches the combined limit. Later strategies
// only run when earlier ones left room.
func (s *AutocompleteService) Combined(ctx context.Context, query string) []string {
	return s.cached(ctx, cache.KeyPrefixCombinedSuggestions+query, func(ctx context.Context) []string {
		merged := s.fetch(ctx, StrategyPrefix, query, s.suggester.Suggest)
		if len(merged) < s.combinedLimit {
			merged = mergeDistinct(merged, s.fetch(ctx, StrategyNgram, query, s.suggester.NgramSuggest))
		}
		if len(merged) < s.combinedLimit {
			merged = mergeDistinct(merged, s.fetch(ctx, StrategyFuzzy, query, s.suggester.FuzzySuggest))
		}
		if len(merged) > s.combinedLimit {
			merged = merged[:s.combinedLimit]
		}
		return merged
	})
}

// cached reads through the cache; whatever fetch returns is cached,
// including empty lists. Cache failures count as misses.
func (s *AutocompleteService) cached(ctx context.Context, key string, fetch func(context.Context) []string) []string {
	var hit []string
	ok, err := s.cache.Get(ctx, key, &hit)
	if err != nil {
		s.logger.Warn("suggestion cache read failed", "key", key, "error", err)
	} else if ok {
		return hit
	}

	result := fetch(ctx)
	if err := s.cache.Put(ctx, key, result, s.ttl); err != nil {
		s.logger.Warn("suggestion cache write failed", "key", key, "error", err)
	}
	return result
}

// fetch runs one strategy through the circuit breaker. Any failure,
// including an open breaker, degrades to an empty list.
func (s *AutocompleteService) fetch(ctx context.Context, strategy, query string, call func(context.Context, string, int) ([]string, error)) []string {
	result, err := s.breaker.Execute(func() ([]string, error) {
		return call(ctx, query, s.strategyLimit)
	})
	if err != nil {
		s.logger.Warn("autocomplete strategy failed", "strategy", strategy, "query", query, "error", err)
		return []string{}
	}
	if result == nil {
		result = []string{}
	}
	return result
}

// mergeDistinct appends items from next that are not already in base,
// preserving order.
func mergeDistinct(base, next []string) []string {
	seen := make(map[string]bool, len(base))
	for _, v := range base {
		seen[v] = true
	}
	for _, v := range next {
		if !seen[v] {
			seen[v] = true
			base = append(base, v)
		}
	}
	return base
}
