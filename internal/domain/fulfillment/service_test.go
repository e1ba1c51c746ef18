package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/blisstech/go-rxfill/internal/domain/audit"
	"github.com/blisstech/go-rxfill/internal/domain/inventory"
)

// memStore is an in-memory Store with transactional semantics: mutations
// stage on a copy and apply only when the fill closure returns nil.
type memStore struct {
	mu       sync.Mutex
	patients map[int64]bool
	stock    map[int64]int
	records  []FillRecord
	nextID   int64

	failInsert error
}

func newMemStore() *memStore {
	return &memStore{
		patients: map[int64]bool{},
		stock:    map[int64]int{},
		nextID:   1,
	}
}

func (s *memStore) Fill(ctx context.Context, fn func(tx FillTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, stock: map[int64]int{}, failInsert: s.failInsert}
	for id, qty := range s.stock {
		tx.stock[id] = qty
	}
	tx.nextID = s.nextID

	if err := fn(tx); err != nil {
		return err
	}

	s.stock = tx.stock
	s.records = append(s.records, tx.inserted...)
	s.nextID = tx.nextID
	return nil
}

func (s *memStore) ListViews(ctx context.Context) ([]FillView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]FillView, 0, len(s.records))
	for _, r := range s.records {
		views = append(views, FillView{FillRecord: r})
	}
	return views, nil
}

func (s *memStore) ListByPair(ctx context.Context, patientID, medicationID int64) ([]FillRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []FillRecord
	for _, r := range s.records {
		if r.PatientID == patientID && r.MedicationID == medicationID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memTx struct {
	store    *memStore
	stock    map[int64]int
	inserted []FillRecord
	nextID   int64

	failInsert error
}

func (tx *memTx) EnsurePatient(ctx context.Context, patientID int64) error {
	if !tx.store.patients[patientID] {
		return ErrPatientNotFound
	}
	return nil
}

func (tx *memTx) ReserveStock(ctx context.Context, medicationID int64, qty int) error {
	stock, ok := tx.stock[medicationID]
	if !ok {
		return inventory.ErrNotFound
	}
	if stock < qty {
		return fmt.Errorf("%w: have %d, need %d", inventory.ErrInsufficientStock, stock, qty)
	}
	return nil
}

func (tx *memTx) InsertFill(ctx context.Context, rec *FillRecord) error {
	if tx.failInsert != nil {
		return tx.failInsert
	}
	rec.ID = tx.nextID
	rec.CreatedAt = time.Now().UTC()
	tx.nextID++
	tx.inserted = append(tx.inserted, *rec)
	return nil
}

func (tx *memTx) DecrementStock(ctx context.Context, medicationID int64, qty int) (int, error) {
	tx.stock[medicationID] -= qty
	return tx.stock[medicationID], nil
}

type fixedStockCounter int

func (c fixedStockCounter) CountLowStock(ctx context.Context, threshold int) (int, error) {
	return int(c), nil
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAuditor) Record(e audit.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAuditor) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []struct {
		medicationID int64
		remaining    int
	}
}

func (a *recordingAlerter) LowStock(ctx context.Context, medicationID int64, remaining int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, struct {
		medicationID int64
		remaining    int
	}{medicationID, remaining})
	return nil
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

func validRequest() FillRequest {
	return FillRequest{
		Actor:        "jdoe",
		PatientID:    1,
		MedicationID: 5,
		Prescriber:   "Dr. Chen",
		Sig:          "Take one tablet daily",
		Quantity:     30,
		Refills:      2,
		DaysSupply:   30,
		DateFilled:   date(2024, 3, 1),
	}
}

func TestFillPrescriptionSuccess(t *testing.T) {
	store := newMemStore()
	store.patients[1] = true
	store.stock[5] = 30
	auditor := &recordingAuditor{}
	svc := NewService(store, fixedStockCounter(0), auditor, nil, nil, nil)

	rec, err := svc.FillPrescription(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.ID == 0 {
		t.Error("expected an assigned fill id")
	}
	if want := date(2024, 3, 31); !rec.NextRefillDate.Equal(want) {
		t.Errorf("expected next refill %v, got %v", want, rec.NextRefillDate)
	}
	if store.stock[5] != 0 {
		t.Errorf("expected stock 0 after dispense, got %d", store.stock[5])
	}
	if auditor.count() != 1 {
		t.Errorf("expected one audit entry, got %d", auditor.count())
	}
	if auditor.entries[0].Action != audit.ActionFillPrescription {
		t.Errorf("unexpected audit action %q", auditor.entries[0].Action)
	}
}

func TestFillPrescriptionInsufficientStock(t *testing.T) {
	store := newMemStore()
	store.patients[1] = true
	store.stock[5] = 30
	auditor := &recordingAuditor{}
	svc := NewService(store, fixedStockCounter(0), auditor, nil, nil, nil)

	if _, err := svc.FillPrescription(context.Background(), validRequest()); err != nil {
		t.Fatalf("first fill failed: %v", err)
	}

	// Stock is now exhausted; even a single unit must be refused.
	req := validRequest()
	req.Quantity = 1
	_, err := svc.FillPrescription(context.Background(), req)
	if !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	if store.stock[5] != 0 {
		t.Errorf("stock changed on a refused fill: %d", store.stock[5])
	}
	if len(store.records) != 1 {
		t.Errorf("expected 1 fill record, got %d", len(store.records))
	}
	if auditor.count() != 1 {
		t.Errorf("refused fill produced an audit entry")
	}
}

func TestFillPrescriptionUnknownPatient(t *testing.T) {
	store := newMemStore()
	store.stock[5] = 30
	svc := NewService(store, fixedStockCounter(0), nil, nil, nil, nil)

	_, err := svc.FillPrescription(context.Background(), validRequest())
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
	if store.stock[5] != 30 {
		t.Errorf("stock changed on a refused fill: %d", store.stock[5])
	}
}

func TestFillPrescriptionUnknownMedication(t *testing.T) {
	store := newMemStore()
	store.patients[1] = true
	svc := NewService(store, fixedStockCounter(0), nil, nil, nil, nil)

	_, err := svc.FillPrescription(context.Background(), validRequest())
	if !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("expected inventory.ErrNotFound, got %v", err)
	}
}

func TestFillPrescriptionValidation(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, fixedStockCounter(0), nil, nil, nil, nil)

	req := validRequest()
	req.Quantity = 0
	if _, err := svc.FillPrescription(context.Background(), req); err == nil {
		t.Fatal("expected a validation error")
	}
	if len(store.records) != 0 {
		t.Error("invalid request reached storage")
	}
}

func TestFillPrescriptionRollsBackOnWriteFailure(t *testing.T) {
	store := newMemStore()
	store.patients[1] = true
	store.stock[5] = 30
	store.failInsert = errors.New("disk full")
	auditor := &recordingAuditor{}
	svc := NewService(store, fixedStockCounter(0), auditor, nil, nil, nil)

	_, err := svc.FillPrescription(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected an error")
	}

	if store.stock[5] != 30 {
		t.Errorf("stock changed on a failed transaction: %d", store.stock[5])
	}
	if len(store.records) != 0 {
		t.Errorf("fill record persisted on a failed transaction")
	}
	if auditor.count() != 0 {
		t.Error("failed fill produced an audit entry")
	}
}

func TestFillPrescriptionAlertsOnLowStock(t *testing.T) {
	store := newMemStore()
	store.patients[1] = true
	store.stock[5] = 120
	alerter := &recordingAlerter{}
	svc := NewService(store, fixedStockCounter(0), nil, alerter, nil, nil)

	if _, err := svc.FillPrescription(context.Background(), validRequest()); err != nil {
		t.Fatalf("fill failed: %v", err)
	}

	if alerter.count() != 1 {
		t.Fatalf("expected one alert, got %d", alerter.count())
	}
	if got := alerter.alerts[0]; got.medicationID != 5 || got.remaining != 90 {
		t.Errorf("unexpected alert %+v", got)
	}
}

func TestFillPrescriptionNoAlertAboveThreshold(t *testing.T) {
	store := newMemStore()
	store.patients[1] = true
	store.stock[5] = 200
	alerter := &recordingAlerter{}
	svc := NewService(store, fixedStockCounter(0), nil, alerter, nil, nil)

	if _, err := svc.FillPrescription(context.Background(), validRequest()); err != nil {
		t.Fatalf("fill failed: %v", err)
	}

	// 170 remaining is comfortably above the reorder threshold.
	if alerter.count() != 0 {
		t.Errorf("unexpected alert with %d alerts", alerter.count())
	}
}

func TestDashboardStats(t *testing.T) {
	store := newMemStore()
	store.patients[1] = true
	store.patients[2] = true
	store.stock[5] = 1000
	store.stock[6] = 1000
	svc := NewService(store, fixedStockCounter(3), nil, nil, nil, nil)

	fill := func(patientID, medicationID int64, filled time.Time, daysSupply int) {
		t.Helper()
		req := validRequest()
		req.PatientID = patientID
		req.MedicationID = medicationID
		req.DateFilled = filled
		req.DaysSupply = daysSupply
		if _, err := svc.FillPrescription(context.Background(), req); err != nil {
			t.Fatalf("fill failed: %v", err)
		}
	}

	now := date(2024, 3, 15)
	fill(1, 5, date(2024, 3, 1), 14)  // due 2024-03-15 -> today
	fill(1, 6, date(2024, 3, 1), 17)  // due 2024-03-18 -> soon
	fill(2, 5, date(2024, 3, 1), 60)  // due 2024-04-30 -> not due
	fill(2, 6, date(2024, 2, 1), 14)  // overdue -> today

	stats, err := svc.DashboardStats(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.DueTodayCount != 2 {
		t.Errorf("expected 2 due today, got %d", stats.DueTodayCount)
	}
	if stats.DueSoonCount != 1 {
		t.Errorf("expected 1 due soon, got %d", stats.DueSoonCount)
	}
	if stats.LowStockCount != 3 {
		t.Errorf("expected 3 low stock, got %d", stats.LowStockCount)
	}

	// A second read returns the same counts.
	again, err := svc.DashboardStats(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != stats {
		t.Errorf("stats changed between reads: %+v vs %+v", stats, again)
	}
}

func TestRefillSupersedesOnReadPaths(t *testing.T) {
	store := newMemStore()
	store.patients[1] = true
	store.stock[5] = 1000
	svc := NewService(store, fixedStockCounter(0), nil, nil, nil, nil)

	first := validRequest()
	first.DateFilled = date(2024, 1, 1)
	if _, err := svc.FillPrescription(context.Background(), first); err != nil {
		t.Fatalf("first fill failed: %v", err)
	}

	refill := validRequest()
	refill.DateFilled = date(2024, 2, 1)
	filled, err := svc.FillPrescription(context.Background(), refill)
	if err != nil {
		t.Fatalf("refill failed: %v", err)
	}

	current, ok, err := svc.CurrentForPair(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a current fill")
	}
	if current.ID != filled.ID {
		t.Errorf("expected refill %d to be current, got %d", filled.ID, current.ID)
	}

	views, err := svc.UpcomingRefills(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 upcoming fill, got %d", len(views))
	}
	if views[0].ID != filled.ID {
		t.Errorf("superseded fill leaked into upcoming list")
	}
}
