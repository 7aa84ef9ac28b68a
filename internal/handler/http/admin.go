package http

import (
	"log/slog"
	"net/http"

	"github.com/elanq/ecommerce-search/internal/service"
	"github.com/elanq/ecommerce-search/pkg/httputil"
)

// AdminHandler handles administrative endpoints.
type AdminHandler struct {
	reindexer *service.BulkReindexer
	logger    *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(reindexer *service.BulkReindexer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		reindexer: reindexer,
		logger:    logger,
	}
}

// Reindex handles POST /admin/reindex/products. The rebuild runs in the
// background; the response only acknowledges the trigger.
func (h *AdminHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	if !h.reindexer.Start() {
		httputil.WriteJSON(w, http.StatusConflict, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "REINDEX_IN_PROGRESS", Message: "a reindex run is already in progress"},
		})
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{
		Data: map[string]string{"status": "reindex started"},
	})
}
