package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/internal/service"
	"github.com/elanq/ecommerce-search/pkg/httputil"
)

// SearchHandler handles HTTP requests for search and discovery endpoints.
type SearchHandler struct {
	search       *service.SearchService
	autocomplete *service.AutocompleteService
	logger       *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(search *service.SearchService, autocomplete *service.AutocompleteService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		search:       search,
		autocomplete: autocomplete,
		logger:       logger,
	}
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	req := &domain.SearchRequest{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
	}

	if v := r.URL.Query().Get("category"); v != "" {
		req.Category = &v
	}
	if v := r.URL.Query().Get("min_price"); v != "" {
		price, ok := parsePrice(w, "min_price", v)
		if !ok {
			return
		}
		req.MinPrice = &price
	}
	if v := r.URL.Query().Get("max_price"); v != "" {
		price, ok := parsePrice(w, "max_price", v)
		if !ok {
			return
		}
		req.MaxPrice = &price
	}
	if req.MinPrice != nil && req.MaxPrice != nil && *req.MinPrice > *req.MaxPrice {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "min_price must not exceed max_price"},
		})
		return
	}

	sortBy := r.URL.Query().Get("sort")
	switch sortBy {
	case "", "_score", "price", "created_at":
		req.SortBy = sortBy
	default:
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "sort must be one of: _score, price, created_at"},
		})
		return
	}
	req.SortOrder = r.URL.Query().Get("order")

	if v := r.URL.Query().Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil && page > 0 {
			req.Page = page
		}
	}
	if v := r.URL.Query().Get("size"); v != "" {
		if size, err := strconv.Atoi(v); err == nil && size > 0 && size <= 100 {
			req.Size = size
		}
	}

	result, err := h.search.Search(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

func parsePrice(w http.ResponseWriter, name, value string) (int64, bool) {
	price, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: name + " must be a valid number"},
		})
		return 0, false
	}
	if price < 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: name + " must not be negative"},
		})
		return 0, false
	}
	return price, true
}

// Similar handles GET /api/v1/search/similar/{id}
func (h *SearchHandler) Similar(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	result, err := h.search.SimilarProducts(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Recommendations handles GET /api/v1/search/recommendations
func (h *SearchHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = r.Header.Get("X-User-ID")
	}
	if userID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "user_id is required"},
		})
		return
	}

	activityType := domain.ActivityType(strings.ToUpper(r.URL.Query().Get("type")))
	if activityType == "" {
		activityType = domain.ActivityView
	}

	result, err := h.search.UserRecommendation(r.Context(), userID, activityType)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Autocomplete handles GET /api/v1/search/autocomplete
func (h *SearchHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"suggestions": []string{}}})
		return
	}

	strategy := r.URL.Query().Get("strategy")
	var suggestions []string
	switch strategy {
	case "", service.StrategyCombined:
		suggestions = h.autocomplete.Combined(r.Context(), query)
	case service.StrategyPrefix:
		suggestions = h.autocomplete.Prefix(r.Context(), query)
	case service.StrategyNgram:
		suggestions = h.autocomplete.Ngram(r.Context(), query)
	case service.StrategyFuzzy:
		suggestions = h.autocomplete.Fuzzy(r.Context(), query)
	default:
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "strategy must be one of: prefix, ngram, fuzzy, combined"},
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"suggestions": suggestions}})
}
