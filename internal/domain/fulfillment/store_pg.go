package fulfillment

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/blisstech/go-rxfill/internal/domain/inventory"
)

// PGStore is the PostgreSQL fill record store. Fill identities come from a
// bigserial column, which gives the monotonic creation order the refill
// chain depends on.
type PGStore struct {
	pool   *pgxpool.Pool
	ledger *inventory.Ledger
	logger *zap.Logger
}

// NewPGStore creates a new store.
func NewPGStore(pool *pgxpool.Pool, ledger *inventory.Ledger, logger *zap.Logger) *PGStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PGStore{pool: pool, ledger: ledger, logger: logger}
}

// Fill runs fn inside a single read-committed transaction.
func (s *PGStore) Fill(ctx context.Context, fn func(tx FillTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgFillTx{tx: tx, ledger: s.ledger}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// pgFillTx adapts a pgx transaction to the FillTx contract.
type pgFillTx struct {
	tx     pgx.Tx
	ledger *inventory.Ledger
}

func (t *pgFillTx) EnsurePatient(ctx context.Context, patientID int64) error {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1)`, patientID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check patient: %w", err)
	}
	if !exists {
		return ErrPatientNotFound
	}
	return nil
}

func (t *pgFillTx) ReserveStock(ctx context.Context, medicationID int64, qty int) error {
	return t.ledger.Reserve(ctx, t.tx, medicationID, qty)
}

func (t *pgFillTx) InsertFill(ctx context.Context, rec *FillRecord) error {
	query := `
		INSERT INTO fill_records
		(patient_id, medication_id, prescriber, sig, quantity, refills, days_supply, date_filled, next_refill_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err := t.tx.QueryRow(ctx, query,
		rec.PatientID, rec.MedicationID, rec.Prescriber, rec.Sig,
		rec.Quantity, rec.Refills, rec.DaysSupply, rec.DateFilled, rec.NextRefillDate,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert fill record: %w", err)
	}
	return nil
}

func (t *pgFillTx) DecrementStock(ctx context.Context, medicationID int64, qty int) (int, error) {
	return t.ledger.Decrement(ctx, t.tx, medicationID, qty)
}

const fillViewColumns = `
	f.id, f.patient_id, f.medication_id, f.prescriber, f.sig,
	f.quantity, f.refills, f.days_supply, f.date_filled, f.next_refill_date,
	f.created_at, p.name, m.name
`

// ListViews returns every fill record joined with patient and medication
// names, ordered by identity.
func (s *PGStore) ListViews(ctx context.Context) ([]FillView, error) {
	query := `
		SELECT ` + fillViewColumns + `
		FROM fill_records f
		JOIN patients p ON p.id = f.patient_id
		JOIN medications m ON m.id = f.medication_id
		ORDER BY f.id ASC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list fill views: %w", err)
	}
	defer rows.Close()

	var views []FillView
	for rows.Next() {
		var v FillView
		err := rows.Scan(&v.ID, &v.PatientID, &v.MedicationID, &v.Prescriber, &v.Sig,
			&v.Quantity, &v.Refills, &v.DaysSupply, &v.DateFilled, &v.NextRefillDate,
			&v.CreatedAt, &v.PatientName, &v.MedicationName)
		if err != nil {
			return nil, fmt.Errorf("scan fill view: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ListByPair returns one pair's fill history ordered by identity ascending.
func (s *PGStore) ListByPair(ctx context.Context, patientID, medicationID int64) ([]FillRecord, error) {
	query := `
		SELECT id, patient_id, medication_id, prescriber, sig,
		       quantity, refills, days_supply, date_filled, next_refill_date, created_at
		FROM fill_records
		WHERE patient_id = $1 AND medication_id = $2
		ORDER BY id ASC
	`
	rows, err := s.pool.Query(ctx, query, patientID, medicationID)
	if err != nil {
		return nil, fmt.Errorf("list pair history: %w", err)
	}
	defer rows.Close()

	var records []FillRecord
	for rows.Next() {
		var r FillRecord
		err := rows.Scan(&r.ID, &r.PatientID, &r.MedicationID, &r.Prescriber, &r.Sig,
			&r.Quantity, &r.Refills, &r.DaysSupply, &r.DateFilled, &r.NextRefillDate, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan fill record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
