// Package http exposes the search service's REST API.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elanq/ecommerce-search/internal/service"
	"github.com/elanq/ecommerce-search/pkg/health"
	"github.com/elanq/ecommerce-search/pkg/middleware"
)

// suggestionCacheSeconds is the Cache-Control max-age for autocomplete
// responses, kept short since suggestions change with the catalog.
const suggestionCacheSeconds = 60

// NewRouter creates a chi router with all search service routes registered.
func NewRouter(
	searchService *service.SearchService,
	autocompleteService *service.AutocompleteService,
	activityService *service.ActivityService,
	reindexer *service.BulkReindexer,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("search"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	searchHandler := NewSearchHandler(searchService, autocompleteService, logger)
	activityHandler := NewActivityHandler(activityService, logger)
	adminHandler := NewAdminHandler(reindexer, logger)

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/", searchHandler.Search)
		r.Get("/similar/{id}", searchHandler.Similar)
		r.Get("/recommendations", searchHandler.Recommendations)

		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(suggestionCacheSeconds))
			r.Get("/autocomplete", searchHandler.Autocomplete)
		})
	})

	r.Route("/api/v1/activities", func(r chi.Router) {
		r.Post("/", activityHandler.Track)
		r.Get("/products/{id}/count", activityHandler.Count)
	})

	r.Post("/admin/reindex/products", adminHandler.Reindex)

	return r
}
