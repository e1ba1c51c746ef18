// Package fulfillment implements the prescription fill engine: the
// transactional stock-deduction protocol, the refill-chain rule that picks
// the current fill per patient/medication pair, and the due-date arithmetic
// and dashboard rollups built on top of it.
package fulfillment

import (
	"errors"
	"time"
)

// FillRecord is one prescription fill. Records are append-only: a refill is a
// new record for the same (patient, medication) pair, never an update, and
// identities are assigned monotonically in creation order.
type FillRecord struct {
	ID             int64     `json:"id"`
	PatientID      int64     `json:"patient_id"`
	MedicationID   int64     `json:"medication_id"`
	Prescriber     string    `json:"prescriber"`
	Sig            string    `json:"sig"`
	Quantity       int       `json:"quantity"`
	Refills        int       `json:"refills"`
	DaysSupply     int       `json:"days_supply"`
	DateFilled     time.Time `json:"date_filled"`
	NextRefillDate time.Time `json:"next_refill_date"`
	CreatedAt      time.Time `json:"created_at"`
}

// PairKey identifies a patient/medication pairing.
type PairKey struct {
	PatientID    int64
	MedicationID int64
}

// Pair returns the record's pair key.
func (r FillRecord) Pair() PairKey {
	return PairKey{PatientID: r.PatientID, MedicationID: r.MedicationID}
}

// FillView is a fill record joined with display names for the read paths.
type FillView struct {
	FillRecord
	PatientName    string `json:"patient_name"`
	MedicationName string `json:"medication_name"`
}

// FillRequest is the input to FillPrescription. Actor is the logged-in user
// recorded on the audit trail.
type FillRequest struct {
	Actor        string
	PatientID    int64
	MedicationID int64
	Prescriber   string
	Sig          string
	Quantity     int
	Refills      int
	DaysSupply   int
	DateFilled   time.Time
}

// Validate rejects structurally invalid requests before any storage work.
func (req *FillRequest) Validate() error {
	if req.PatientID <= 0 {
		return errors.New("patient_id is required")
	}
	if req.MedicationID <= 0 {
		return errors.New("medication_id is required")
	}
	if req.Prescriber == "" {
		return errors.New("prescriber is required")
	}
	if req.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	if req.Refills < 0 {
		return errors.New("refills must not be negative")
	}
	if req.DaysSupply <= 0 {
		return errors.New("days_supply must be positive")
	}
	if req.DateFilled.IsZero() {
		return errors.New("date_filled is required")
	}
	return nil
}
