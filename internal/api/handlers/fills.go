package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/blisstech/go-rxfill/internal/api/middleware"
	"github.com/blisstech/go-rxfill/internal/domain/fulfillment"
	"github.com/blisstech/go-rxfill/internal/domain/inventory"
	"github.com/blisstech/go-rxfill/pkg/idempotency"
)

// FillHandler handles the fulfillment endpoints.
type FillHandler struct {
	svc    *fulfillment.Service
	inbox  *idempotency.Inbox
	logger *zap.Logger
}

// NewFillHandler creates a new handler. inbox may be nil to disable
// idempotent retries.
func NewFillHandler(svc *fulfillment.Service, inbox *idempotency.Inbox, logger *zap.Logger) *FillHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FillHandler{svc: svc, inbox: inbox, logger: logger}
}

// Routes returns the handler routes
func (h *FillHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/current", h.Current)
	r.Get("/due", h.Due)
	r.Get("/upcoming", h.Upcoming)
	return r
}

// FillRequestBody is the request body for filling a prescription.
type FillRequestBody struct {
	PatientID    int64  `json:"patient_id"`
	MedicationID int64  `json:"medication_id"`
	Prescriber   string `json:"prescriber"`
	Sig          string `json:"sig"`
	Quantity     int    `json:"quantity"`
	Refills      int    `json:"refills"`
	DaysSupply   int    `json:"days_supply"`
	DateFilled   string `json:"date_filled"`
}

// Create handles POST /fills
func (h *FillHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("fill-handler")
	ctx, span := tracer.Start(ctx, "create_fill")
	defer span.End()

	var body FillRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	dateFilled := time.Now().UTC()
	if body.DateFilled != "" {
		parsed, err := time.Parse("2006-01-02", body.DateFilled)
		if err != nil {
			jsonError(w, "date_filled must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		dateFilled = parsed
	}

	req := fulfillment.FillRequest{
		Actor:        middleware.GetUsername(ctx),
		PatientID:    body.PatientID,
		MedicationID: body.MedicationID,
		Prescriber:   body.Prescriber,
		Sig:          body.Sig,
		Quantity:     body.Quantity,
		Refills:      body.Refills,
		DaysSupply:   body.DaysSupply,
		DateFilled:   dateFilled,
	}
	if err := req.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.Int64("patient_id", req.PatientID),
		attribute.Int64("medication_id", req.MedicationID),
	)

	// The inbox is engaged only when the caller opts in with a key.
	// Two distinct fills without keys must both dispense.
	key := r.Header.Get("X-Idempotency-Key")
	if h.inbox == nil || key == "" {
		rec, err := h.svc.FillPrescription(ctx, req)
		if err != nil {
			h.fillError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, rec)
		return
	}

	result, err := h.inbox.Process(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		rec, err := h.svc.FillPrescription(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(rec)
	})
	if err != nil {
		h.fillError(w, err)
		return
	}

	code := http.StatusCreated
	if !result.IsNew {
		code = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(result.Result)
}

func (h *FillHandler) fillError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fulfillment.ErrPatientNotFound):
		jsonError(w, "patient not found", http.StatusNotFound)
	case errors.Is(err, inventory.ErrNotFound):
		jsonError(w, "medication not found", http.StatusNotFound)
	case errors.Is(err, inventory.ErrInsufficientStock):
		jsonError(w, "insufficient stock", http.StatusConflict)
	case errors.Is(err, idempotency.ErrInProgress):
		jsonError(w, "request already in progress", http.StatusConflict)
	default:
		h.logger.Error("fill failed", zap.Error(err))
		jsonError(w, "failed to fill prescription", http.StatusInternalServerError)
	}
}

// Current handles GET /fills/current. It resolves the current fill for one
// patient/medication pair, used to pre-populate a refill form.
func (h *FillHandler) Current(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	patientID, err1 := strconv.ParseInt(r.URL.Query().Get("patient_id"), 10, 64)
	medicationID, err2 := strconv.ParseInt(r.URL.Query().Get("medication_id"), 10, 64)
	if err1 != nil || err2 != nil {
		jsonError(w, "patient_id and medication_id are required", http.StatusBadRequest)
		return
	}

	rec, ok, err := h.svc.CurrentForPair(ctx, patientID, medicationID)
	if err != nil {
		h.logger.Error("resolve current fill failed", zap.Error(err))
		jsonError(w, "failed to resolve current fill", http.StatusInternalServerError)
		return
	}
	if !ok {
		jsonError(w, "no fill history for pair", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// Due handles GET /fills/due?status=today|soon
func (h *FillHandler) Due(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var filter fulfillment.DueStatus
	switch r.URL.Query().Get("status") {
	case "today":
		filter = fulfillment.DueToday
	case "soon":
		filter = fulfillment.DueSoon
	default:
		jsonError(w, "status must be today or soon", http.StatusBadRequest)
		return
	}

	now, err := parseDate(r)
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	views, err := h.svc.DueList(ctx, filter, now)
	if err != nil {
		h.logger.Error("due list failed", zap.Error(err))
		jsonError(w, "failed to list due refills", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, views)
}

// Upcoming handles GET /fills/upcoming
func (h *FillHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.UpcomingRefills(r.Context())
	if err != nil {
		h.logger.Error("upcoming refills failed", zap.Error(err))
		jsonError(w, "failed to list upcoming refills", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, views)
}
