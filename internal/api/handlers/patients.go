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
	"github.com/blisstech/go-rxfill/internal/domain/patient"
)

// PatientHandler handles the patient directory endpoints.
type PatientHandler struct {
	repo    patient.Repository
	auditor audit.Recorder
	logger  *zap.Logger
}

// NewPatientHandler creates a new handler
func NewPatientHandler(repo patient.Repository, auditor audit.Recorder, logger *zap.Logger) *PatientHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &PatientHandler{repo: repo, auditor: auditor, logger: logger}
}

// Routes returns the handler routes
func (h *PatientHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	return r
}

// Create handles POST /patients
func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var p patient.Patient
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := p.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Create(ctx, &p); err != nil {
		h.logger.Error("create patient failed", zap.Error(err))
		jsonError(w, "failed to create patient", http.StatusInternalServerError)
		return
	}

	h.auditor.Record(audit.Entry{
		Actor:   middleware.GetUsername(ctx),
		Action:  audit.ActionAddPatient,
		Details: fmt.Sprintf("Added patient #%d: %s", p.ID, p.Name),
	})

	respondJSON(w, http.StatusCreated, p)
}

// List handles GET /patients
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	patients, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list patients failed", zap.Error(err))
		jsonError(w, "failed to list patients", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, patients)
}

// Get handles GET /patients/{id}
func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, "invalid patient id", http.StatusBadRequest)
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			jsonError(w, "patient not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get patient failed", zap.Error(err))
		jsonError(w, "failed to get patient", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, p)
}
