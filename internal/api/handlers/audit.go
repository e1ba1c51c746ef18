package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/blisstech/go-rxfill/internal/domain/audit"
)

// AuditHandler serves the audit log viewer. It reads the relay's sink table
// directly; nothing in the fill path ever depends on it.
type AuditHandler struct {
	sink   *audit.PGSink
	logger *zap.Logger
}

// NewAuditHandler creates a new handler
func NewAuditHandler(sink *audit.PGSink, logger *zap.Logger) *AuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditHandler{sink: sink, logger: logger}
}

// Routes returns the handler routes
func (h *AuditHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}

// List handles GET /audit-logs
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := h.sink.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list audit entries failed", zap.Error(err))
		jsonError(w, "failed to list audit entries", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}

	respondJSON(w, http.StatusOK, entries)
}
