package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/elanq/ecommerce-search/internal/cache"
)

func newAutocompleteService(suggester Suggester) *AutocompleteService {
	return NewAutocompleteService(suggester, cache.NewMemoryCache(), time.Minute, 3, 5, newTestLogger())
}

func TestAutocomplete_Combined_CascadesUntilFull(t *testing.T) {
	ctx := context.Background()
	stub := newStubSuggester()
	stub.prefix = []string{"Wireless Mouse", "Wireless Keyboard"}
	stub.ngram = []string{"Wireless Keyboard", "Wireless Charger"}
	stub.fuzzy = []string{"Wired Mouse", "Wireless Router", "Wireless Webcam"}

	svc := newAutocompleteService(stub)

	got := svc.Combined(ctx, "wirele")

	// Prefix results come first, duplicates collapse, the cap holds.
	assert.Equal(t, []string{
		"Wireless Mouse",
		"Wireless Keyboard",
		"Wireless Charger",
		"Wired Mouse",
		"Wireless Router",
	}, got)
}

func TestAutocomplete_Combined_StopsWhenSatisfied(t *testing.T) {
	ctx := context.Background()
	stub := newStubSuggester()
	stub.prefix = []string{"a", "b", "c", "d", "e"}

	svc := newAutocompleteService(stub)

	got := svc.Combined(ctx, "query")

	assert.Len(t, got, 5)
	assert.Equal(t, 1, stub.callCount(StrategyPrefix))
	assert.Equal(t, 0, stub.callCount(StrategyNgram))
	assert.Equal(t, 0, stub.callCount(StrategyFuzzy))
}

func TestAutocomplete_FailureDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	stub := newStubSuggester()
	stub.err = errors.New("index unreachable")

	svc := newAutocompleteService(stub)

	assert.Empty(t, svc.Prefix(ctx, "a"))
	assert.Empty(t, svc.Ngram(ctx, "b"))
	assert.Empty(t, svc.Fuzzy(ctx, "c"))
	assert.Empty(t, svc.Combined(ctx, "d"))
}

func TestAutocomplete_CacheShortCircuits(t *testing.T) {
	ctx := context.Background()
	stub := newStubSuggester()
	stub.prefix = []string{"Wireless Mouse"}

	svc := newAutocompleteService(stub)

	first := svc.Prefix(ctx, "wire")
	second := svc.Prefix(ctx, "wire")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, stub.callCount(StrategyPrefix))
}

func TestAutocomplete_EmptyResultIsCachedToo(t *testing.T) {
	ctx := context.Background()
	stub := newStubSuggester()

	svc := newAutocompleteService(stub)

	assert.Empty(t, svc.Ngram(ctx, "nothing"))
	assert.Empty(t, svc.Ngram(ctx, "nothing"))
	assert.Equal(t, 1, stub.callCount(StrategyNgram))
}
