package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/blisstech/go-rxfill/internal/api/middleware"
	"github.com/blisstech/go-rxfill/internal/domain/audit"
	"github.com/blisstech/go-rxfill/internal/domain/inventory"
)

// MedicationHandler handles the formulary endpoints.
type MedicationHandler struct {
	repo    inventory.Repository
	auditor audit.Recorder
	logger  *zap.Logger
}

// NewMedicationHandler creates a new handler
func NewMedicationHandler(repo inventory.Repository, auditor audit.Recorder, logger *zap.Logger) *MedicationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &MedicationHandler{repo: repo, auditor: auditor, logger: logger}
}

// Routes returns the handler routes
func (h *MedicationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	return r
}

// Create handles POST /medications
func (h *MedicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var m inventory.Medication
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := m.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Create(ctx, &m); err != nil {
		if errors.Is(err, inventory.ErrDuplicateDIN) {
			jsonError(w, "medication with this DIN already exists", http.StatusConflict)
			return
		}
		h.logger.Error("create medication failed", zap.Error(err))
		jsonError(w, "failed to create medication", http.StatusInternalServerError)
		return
	}

	h.auditor.Record(audit.Entry{
		Actor:   middleware.GetUsername(ctx),
		Action:  audit.ActionAddMedication,
		Details: fmt.Sprintf("Added medication #%d: %s (DIN %s)", m.ID, m.Name, m.DIN),
	})

	respondJSON(w, http.StatusCreated, m)
}

// List handles GET /medications
func (h *MedicationHandler) List(w http.ResponseWriter, r *http.Request) {
	meds, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list medications failed", zap.Error(err))
		jsonError(w, "failed to list medications", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, meds)
}

// Get handles GET /medications/{id}
func (h *MedicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, "invalid medication id", http.StatusBadRequest)
		return
	}

	m, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			jsonError(w, "medication not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get medication failed", zap.Error(err))
		jsonError(w, "failed to get medication", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, m)
}

// UpdateRequest is the request body for adjusting a formulary entry.
type UpdateRequest struct {
	Stock       *int     `json:"stock,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Description *string  `json:"description,omitempty"`
}

// Update handles PATCH /medications/{id}
func (h *MedicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, "invalid medication id", http.StatusBadRequest)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Stock == nil && req.Price == nil && req.Description == nil {
		jsonError(w, "nothing to update", http.StatusBadRequest)
		return
	}
	if req.Stock != nil && *req.Stock < 0 {
		jsonError(w, "stock must not be negative", http.StatusBadRequest)
		return
	}
	if req.Price != nil && *req.Price < 0 {
		jsonError(w, "price must not be negative", http.StatusBadRequest)
		return
	}

	m, err := h.repo.Update(ctx, id, inventory.StockUpdate{
		Stock:       req.Stock,
		Price:       req.Price,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			jsonError(w, "medication not found", http.StatusNotFound)
			return
		}
		h.logger.Error("update medication failed", zap.Error(err))
		jsonError(w, "failed to update medication", http.StatusInternalServerError)
		return
	}

	h.auditor.Record(audit.Entry{
		Actor:   middleware.GetUsername(ctx),
		Action:  audit.ActionAdjustInventory,
		Details: fmt.Sprintf("Adjusted medication #%d: %s (stock %d)", m.ID, m.Name, m.Stock),
	})

	respondJSON(w, http.StatusOK, m)
}
