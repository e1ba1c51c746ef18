package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/blisstech/go-rxfill/internal/domain/fulfillment"
)

// DashboardHandler serves the dashboard rollups.
type DashboardHandler struct {
	svc    *fulfillment.Service
	logger *zap.Logger
}

// NewDashboardHandler creates a new handler
func NewDashboardHandler(svc *fulfillment.Service, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{svc: svc, logger: logger}
}

// Routes returns the handler routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/stats", h.Stats)
	return r
}

// Stats handles GET /dashboard/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	now, err := parseDate(r)
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	stats, err := h.svc.DashboardStats(r.Context(), now)
	if err != nil {
		h.logger.Error("dashboard stats failed", zap.Error(err))
		jsonError(w, "failed to compute dashboard stats", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
