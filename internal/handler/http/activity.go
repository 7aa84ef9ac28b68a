package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/internal/service"
	"github.com/elanq/ecommerce-search/pkg/httputil"
	"github.com/elanq/ecommerce-search/pkg/validator"
)

// ActivityHandler handles HTTP requests for activity tracking.
type ActivityHandler struct {
	activities *service.ActivityService
	logger     *slog.Logger
}

// NewActivityHandler creates a new activity HTTP handler.
func NewActivityHandler(activities *service.ActivityService, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{
		activities: activities,
		logger:     logger,
	}
}

// TrackActivityRequest is the JSON request body for recording an activity.
type TrackActivityRequest struct {
	ProductID    string `json:"product_id" validate:"required,uuid"`
	UserID       string `json:"user_id" validate:"required"`
	ActivityType string `json:"activity_type" validate:"required"`
}

// Track handles POST /api/v1/activities. The record is queued and the
// response returns before the index counter is updated.
func (h *ActivityHandler) Track(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req TrackActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	activityType := domain.ActivityType(strings.ToUpper(req.ActivityType))
	if err := h.activities.Track(r.Context(), req.ProductID, req.UserID, activityType); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{
		Data: map[string]string{"status": "recorded"},
	})
}

// Count handles GET /api/v1/activities/products/{id}/count
func (h *ActivityHandler) Count(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	activityType := domain.ActivityType(strings.ToUpper(r.URL.Query().Get("type")))

	from, to, ranged, ok := parseTimeRange(w, r)
	if !ok {
		return
	}

	var (
		count int64
		err   error
	)
	if ranged {
		count, err = h.activities.CountInRange(r.Context(), id.String(), activityType, from, to)
	} else {
		count, err = h.activities.Count(r.Context(), id.String(), activityType)
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{"product_id": id.String(), "activity_type": activityType, "count": count},
	})
}

// parseTimeRange reads optional RFC 3339 "from" and "to" query parameters.
// Both must be present for a ranged count.
func parseTimeRange(w http.ResponseWriter, r *http.Request) (from, to time.Time, ranged, ok bool) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" && toStr == "" {
		return time.Time{}, time.Time{}, false, true
	}
	if fromStr == "" || toStr == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "from and to must be provided together"},
		})
		return time.Time{}, time.Time{}, false, false
	}

	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "from must be RFC 3339"},
		})
		return time.Time{}, time.Time{}, false, false
	}
	to, err = time.Parse(time.RFC3339, toStr)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "to must be RFC 3339"},
		})
		return time.Time{}, time.Time{}, false, false
	}
	return from, to, true, true
}
