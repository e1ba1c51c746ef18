package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/blisstech/go-rxfill/internal/domain/audit"
	"github.com/blisstech/go-rxfill/internal/domain/inventory"
	"github.com/blisstech/go-rxfill/internal/observability/metrics"
)

// Service coordinates fulfillments and serves the refill read paths. It is
// the only component allowed to decrement stock, and it owns the invariant
// that a stock decrement and its fill record commit or roll back together.
type Service struct {
	store   Store
	stock   StockCounter
	auditor audit.Recorder
	alerts  StockAlerter
	metrics *metrics.Metrics
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewService creates a fulfillment service. alerts and metrics may be nil.
func NewService(store Store, stock StockCounter, auditor audit.Recorder, alerts StockAlerter, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	if alerts == nil {
		alerts = NopAlerter{}
	}
	return &Service{
		store:   store,
		stock:   stock,
		auditor: auditor,
		alerts:  alerts,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("fulfillment"),
	}
}

// FillPrescription runs one fulfillment: verify patient, reserve stock,
// compute the next refill date, append the fill record and decrement stock,
// all inside a single transaction. Any failure leaves stock and fill history
// exactly as they were. On success an audit notification is handed off
// best-effort; its outcome never affects the result.
func (s *Service) FillPrescription(ctx context.Context, req FillRequest) (*FillRecord, error) {
	ctx, span := s.tracer.Start(ctx, "fill_prescription",
		trace.WithAttributes(
			attribute.Int64("patient_id", req.PatientID),
			attribute.Int64("medication_id", req.MedicationID),
			attribute.Int("quantity", req.Quantity),
		))
	defer span.End()

	start := time.Now()

	if err := req.Validate(); err != nil {
		s.reject("invalid_request")
		return nil, fmt.Errorf("invalid fill request: %w", err)
	}

	rec := &FillRecord{
		PatientID:      req.PatientID,
		MedicationID:   req.MedicationID,
		Prescriber:     req.Prescriber,
		Sig:            req.Sig,
		Quantity:       req.Quantity,
		Refills:        req.Refills,
		DaysSupply:     req.DaysSupply,
		DateFilled:     midnightUTC(req.DateFilled),
		NextRefillDate: NextRefillDate(req.DateFilled, req.DaysSupply),
	}

	var remaining int
	err := s.store.Fill(ctx, func(tx FillTx) error {
		if err := tx.EnsurePatient(ctx, req.PatientID); err != nil {
			return err
		}
		if err := tx.ReserveStock(ctx, req.MedicationID, req.Quantity); err != nil {
			return err
		}
		if err := tx.InsertFill(ctx, rec); err != nil {
			return err
		}
		var err error
		remaining, err = tx.DecrementStock(ctx, req.MedicationID, req.Quantity)
		return err
	})
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, ErrPatientNotFound), errors.Is(err, inventory.ErrNotFound):
			s.reject("not_found")
		case errors.Is(err, inventory.ErrInsufficientStock):
			s.reject("insufficient_stock")
		default:
			s.reject("transaction_failure")
			s.logger.Error("fulfillment transaction failed",
				zap.Int64("patient_id", req.PatientID),
				zap.Int64("medication_id", req.MedicationID),
				zap.Error(err))
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.FillsCompleted.Inc()
		s.metrics.StockDispensed.Add(float64(req.Quantity))
		s.metrics.FillDuration.Observe(time.Since(start).Seconds())
	}

	s.logger.Info("prescription filled",
		zap.Int64("fill_id", rec.ID),
		zap.Int64("patient_id", rec.PatientID),
		zap.Int64("medication_id", rec.MedicationID),
		zap.Int("quantity", rec.Quantity),
		zap.Time("next_refill", rec.NextRefillDate))

	s.auditor.Record(audit.Entry{
		Actor:  req.Actor,
		Action: audit.ActionFillPrescription,
		Details: fmt.Sprintf("Filled Rx #%d: medication %d x%d for patient %d",
			rec.ID, rec.MedicationID, rec.Quantity, rec.PatientID),
	})

	if remaining < inventory.LowStockThreshold {
		if err := s.alerts.LowStock(ctx, req.MedicationID, remaining); err != nil {
			s.logger.Warn("low stock alert failed",
				zap.Int64("medication_id", req.MedicationID),
				zap.Int("remaining", remaining),
				zap.Error(err))
		}
	}

	return rec, nil
}

func (s *Service) reject(reason string) {
	if s.metrics != nil {
		s.metrics.FillsRejected.WithLabelValues(reason).Inc()
	}
}

// currentViews fetches all fill views and resolves the current set.
func (s *Service) currentViews(ctx context.Context) ([]FillView, error) {
	views, err := s.store.ListViews(ctx)
	if err != nil {
		return nil, err
	}
	return CurrentViews(views)
}

// DashboardStats returns the refill-due counts for the reference date plus
// the low-stock warning count.
func (s *Service) DashboardStats(ctx context.Context, now time.Time) (Stats, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard_stats")
	defer span.End()

	current, err := s.currentViews(ctx)
	if err != nil {
		return Stats{}, err
	}

	dueToday, dueSoon := TallyDue(current, now)

	lowStock, err := s.stock.CountLowStock(ctx, inventory.LowStockThreshold)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		DueTodayCount: dueToday,
		DueSoonCount:  dueSoon,
		LowStockCount: lowStock,
	}, nil
}

// DueList returns the current fills in one due bucket, ordered by next
// refill date.
func (s *Service) DueList(ctx context.Context, filter DueStatus, now time.Time) ([]FillView, error) {
	if filter != DueToday && filter != DueSoon {
		return nil, fmt.Errorf("invalid due filter %q", filter)
	}

	current, err := s.currentViews(ctx)
	if err != nil {
		return nil, err
	}
	return DueList(current, filter, now), nil
}

// UpcomingRefills returns the next refills across all current fills, capped
// at UpcomingLimit.
func (s *Service) UpcomingRefills(ctx context.Context) ([]FillView, error) {
	current, err := s.currentViews(ctx)
	if err != nil {
		return nil, err
	}
	return Upcoming(current), nil
}

// CurrentForPair resolves the current fill for one patient/medication pair.
// ok is false when the pair has no fill history.
func (s *Service) CurrentForPair(ctx context.Context, patientID, medicationID int64) (FillRecord, bool, error) {
	records, err := s.store.ListByPair(ctx, patientID, medicationID)
	if err != nil {
		return FillRecord{}, false, err
	}
	return CurrentForPair(records)
}
