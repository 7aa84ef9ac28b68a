package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/internal/index"
	apperrors "github.com/elanq/ecommerce-search/pkg/errors"
)

// SearchBackend is the query surface the search service needs.
type SearchBackend interface {
	Search(ctx context.Context, req *domain.SearchRequest) (*index.Result, error)
	Similar(ctx context.Context, productID string, categoryNames []string, limit int) (*index.Result, error)
	Recommend(ctx context.Context, productIDs []string, activityType domain.ActivityType, limit int) (*index.Result, error)
}

// SearchService runs ranked queries against the index and resolves the hits
// into full product responses through the cached read path.
type SearchService struct {
	backend        SearchBackend
	resolver       *ProductResolver
	activities     *ActivityService
	similarLimit   int
	recommendLimit int
	seedLimit      int
	logger         *slog.Logger
}

// NewSearchService creates a search service with the given result caps.
func NewSearchService(
	backend SearchBackend,
	resolver *ProductResolver,
	activities *ActivityService,
	similarLimit, recommendLimit, seedLimit int,
	logger *slog.Logger,
) *SearchService {
	return &SearchService{
		backend:        backend,
		resolver:       resolver,
		activities:     activities,
		similarLimit:   similarLimit,
		recommendLimit: recommendLimit,
		seedLimit:      seedLimit,
		logger:         logger,
	}
}

// Search executes a filtered, popularity-boosted keyword search.
func (s *SearchService) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	req.Normalize()

	res, err := s.backend.Search(ctx, req)
	if err != nil {
		return nil, apperrors.Wrap(err, "search products")
	}
	return s.mapResult(ctx, res), nil
}

// SimilarProducts returns products resembling the given one. The source
// product must exist; its category names feed the similarity query as a
// soft boost.
func (s *SearchService) SimilarProducts(ctx context.Context, productID string) (*domain.SearchResult, error) {
	source, err := s.resolver.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(source.Categories))
	for _, c := range source.Categories {
		names = append(names, c.Name)
	}

	res, err := s.backend.Similar(ctx, productID, names, s.similarLimit)
	if err != nil {
		return nil, apperrors.Wrap(err, "similar products")
	}
	return s.mapResult(ctx, res), nil
}

// UserRecommendation recommends products based on the user's recent
// activity of the given type. An unsupported activity type and an empty
// history both yield an empty result, not an error.
func (s *SearchService) UserRecommendation(ctx context.Context, userID string, activityType domain.ActivityType) (*domain.SearchResult, error) {
	if !domain.IsValidActivityType(activityType) {
		return domain.EmptySearchResult(), nil
	}

	history, err := s.activities.RecentByUser(ctx, userID, activityType)
	if err != nil {
		return nil, apperrors.Wrap(err, "recommendation history")
	}

	seeds := TopProductIDs(history, s.seedLimit)
	if len(seeds) == 0 {
		return domain.EmptySearchResult(), nil
	}

	res, err := s.backend.Recommend(ctx, seeds, activityType, s.recommendLimit)
	if err != nil {
		return nil, apperrors.Wrap(err, "recommend products")
	}
	return s.mapResult(ctx, res), nil
}

// mapResult resolves index hits into full product responses, preserving
// rank order. Hits without an ID and hits whose canonical record is gone
// (stale index entries) are skipped.
func (s *SearchService) mapResult(ctx context.Context, res *index.Result) *domain.SearchResult {
	data := make([]domain.ProductResponse, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if hit.ID == "" {
			continue
		}
		resp, err := s.resolver.GetProduct(ctx, hit.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				s.logger.Warn("stale index entry skipped", "product_id", hit.ID)
				continue
			}
			s.logger.Error("resolve search hit failed", "product_id", hit.ID, "error", err)
			continue
		}
		data = append(data, *resp)
	}

	facets := res.Facets
	if facets == nil {
		facets = map[string][]domain.FacetEntry{}
	}

	return &domain.SearchResult{
		Data:      data,
		TotalHits: res.TotalHits,
		Facets:    facets,
	}
}
