package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blisstech/go-rxfill/internal/domain/fulfillment"
	"github.com/blisstech/go-rxfill/internal/domain/inventory"
	"github.com/blisstech/go-rxfill/pkg/idempotency"
)

// stubStore backs the fill service with fixed data for handler tests.
type stubStore struct {
	patients map[int64]bool
	stock    map[int64]int
	records  []fulfillment.FillRecord
	nextID   int64
}

func (s *stubStore) Fill(ctx context.Context, fn func(tx fulfillment.FillTx) error) error {
	return fn(s)
}

func (s *stubStore) EnsurePatient(ctx context.Context, patientID int64) error {
	if !s.patients[patientID] {
		return fulfillment.ErrPatientNotFound
	}
	return nil
}

func (s *stubStore) ReserveStock(ctx context.Context, medicationID int64, qty int) error {
	stock, ok := s.stock[medicationID]
	if !ok {
		return inventory.ErrNotFound
	}
	if stock < qty {
		return fmt.Errorf("%w: have %d, need %d", inventory.ErrInsufficientStock, stock, qty)
	}
	return nil
}

func (s *stubStore) InsertFill(ctx context.Context, rec *fulfillment.FillRecord) error {
	s.nextID++
	rec.ID = s.nextID
	s.records = append(s.records, *rec)
	return nil
}

func (s *stubStore) DecrementStock(ctx context.Context, medicationID int64, qty int) (int, error) {
	s.stock[medicationID] -= qty
	return s.stock[medicationID], nil
}

func (s *stubStore) ListViews(ctx context.Context) ([]fulfillment.FillView, error) {
	views := make([]fulfillment.FillView, 0, len(s.records))
	for _, r := range s.records {
		views = append(views, fulfillment.FillView{FillRecord: r})
	}
	return views, nil
}

func (s *stubStore) ListByPair(ctx context.Context, patientID, medicationID int64) ([]fulfillment.FillRecord, error) {
	var out []fulfillment.FillRecord
	for _, r := range s.records {
		if r.PatientID == patientID && r.MedicationID == medicationID {
			out = append(out, r)
		}
	}
	return out, nil
}

type zeroStock struct{}

func (zeroStock) CountLowStock(ctx context.Context, threshold int) (int, error) { return 0, nil }

func newTestHandler() (*FillHandler, *stubStore) {
	store := &stubStore{
		patients: map[int64]bool{1: true},
		stock:    map[int64]int{5: 30},
	}
	svc := fulfillment.NewService(store, zeroStock{}, nil, nil, nil, nil)
	return NewFillHandler(svc, nil, nil), store
}

func fillBody(quantity int) string {
	return fmt.Sprintf(`{
		"patient_id": 1,
		"medication_id": 5,
		"prescriber": "Dr. Chen",
		"sig": "Take one tablet daily",
		"quantity": %d,
		"refills": 2,
		"days_supply": 30,
		"date_filled": "2024-03-01"
	}`, quantity)
}

func TestCreateFill(t *testing.T) {
	h, store := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(fillBody(30)))
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var rec fulfillment.FillRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if rec.ID == 0 {
		t.Error("expected an assigned fill id")
	}
	want := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	if !rec.NextRefillDate.Equal(want) {
		t.Errorf("expected next refill %v, got %v", want, rec.NextRefillDate)
	}
	if store.stock[5] != 0 {
		t.Errorf("expected stock 0 after dispense, got %d", store.stock[5])
	}
}

func TestCreateFillWithoutKeySkipsInbox(t *testing.T) {
	store := &stubStore{
		patients: map[int64]bool{1: true},
		stock:    map[int64]int{5: 40},
	}
	svc := fulfillment.NewService(store, zeroStock{}, nil, nil, nil, nil)
	// A disconnected inbox: any Process call would fail loudly, so a
	// passing test proves keyless requests never reach it.
	h := NewFillHandler(svc, idempotency.NewInbox(nil, idempotency.DefaultInboxConfig(), nil), nil)

	for _, qty := range []int{30, 10} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(fillBody(qty)))
		w := httptest.NewRecorder()
		h.Create(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("quantity %d: expected 201, got %d: %s", qty, w.Code, w.Body.String())
		}
	}

	// Both submissions dispensed: two records, stock drawn down by both.
	if len(store.records) != 2 {
		t.Fatalf("expected 2 fill records, got %d", len(store.records))
	}
	if store.stock[5] != 0 {
		t.Errorf("expected stock 0 after both fills, got %d", store.stock[5])
	}
}

func TestCreateFillInsufficientStock(t *testing.T) {
	h, store := newTestHandler()
	store.stock[5] = 10

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(fillBody(30)))
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if store.stock[5] != 10 {
		t.Errorf("stock changed on a refused fill: %d", store.stock[5])
	}
}

func TestCreateFillUnknownMedication(t *testing.T) {
	h, store := newTestHandler()
	delete(store.stock, 5)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(fillBody(30)))
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateFillValidation(t *testing.T) {
	h, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(fillBody(0)))
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDueRequiresValidStatus(t *testing.T) {
	h, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/due?status=whenever", nil)
	w := httptest.NewRecorder()
	h.Due(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDueListsCurrentFills(t *testing.T) {
	h, store := newTestHandler()
	store.records = []fulfillment.FillRecord{
		{ID: 1, PatientID: 1, MedicationID: 5, NextRefillDate: time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)},
		{ID: 2, PatientID: 1, MedicationID: 5, NextRefillDate: time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)},
	}
	store.nextID = 2

	req := httptest.NewRequest(http.MethodGet, "/due?status=soon&date=2024-03-15", nil)
	w := httptest.NewRecorder()
	h.Due(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var views []fulfillment.FillView
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	// Only the current record of the pair appears.
	if len(views) != 1 || views[0].ID != 2 {
		t.Fatalf("expected only fill 2, got %+v", views)
	}
}

func TestCurrentForPair(t *testing.T) {
	h, store := newTestHandler()
	store.records = []fulfillment.FillRecord{
		{ID: 1, PatientID: 1, MedicationID: 5},
		{ID: 2, PatientID: 1, MedicationID: 5},
	}

	req := httptest.NewRequest(http.MethodGet, "/current?patient_id=1&medication_id=5", nil)
	w := httptest.NewRecorder()
	h.Current(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var rec fulfillment.FillRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if rec.ID != 2 {
		t.Errorf("expected current fill 2, got %d", rec.ID)
	}
}

func TestCurrentForPairNoHistory(t *testing.T) {
	h, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/current?patient_id=9&medication_id=9", nil)
	w := httptest.NewRecorder()
	h.Current(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}
