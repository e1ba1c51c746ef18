package fulfillment

import (
	"context"
	"errors"
)

// ErrPatientNotFound is returned when a fill references an unknown patient.
var ErrPatientNotFound = errors.New("patient not found")

// FillTx exposes the operations available inside one fulfillment
// transaction. Implementations must make every write atomic with the others:
// if the enclosing function returns an error, none of them may persist.
type FillTx interface {
	// EnsurePatient fails with ErrPatientNotFound if the patient is unknown.
	EnsurePatient(ctx context.Context, patientID int64) error
	// ReserveStock checks and locks stock; inventory.ErrNotFound or
	// inventory.ErrInsufficientStock mean nothing was written.
	ReserveStock(ctx context.Context, medicationID int64, qty int) error
	// InsertFill appends the record and assigns its monotonic identity.
	InsertFill(ctx context.Context, rec *FillRecord) error
	// DecrementStock applies the deduction matching an earlier ReserveStock
	// and reports the stock remaining after it.
	DecrementStock(ctx context.Context, medicationID int64, qty int) (int, error)
}

// Store is the persistence boundary for fill records. The write path runs
// under Fill's single transaction; read paths rely on the storage layer's
// consistent-read guarantee and take no locks.
type Store interface {
	// Fill runs fn inside one transaction, committing only if fn returns nil.
	Fill(ctx context.Context, fn func(tx FillTx) error) error
	// ListViews returns every fill record joined with display names.
	ListViews(ctx context.Context) ([]FillView, error)
	// ListByPair returns one pair's full history ordered by identity.
	ListByPair(ctx context.Context, patientID, medicationID int64) ([]FillRecord, error)
}

// StockCounter reports how many medications sit below a stock threshold.
// Implemented by the inventory repository.
type StockCounter interface {
	CountLowStock(ctx context.Context, threshold int) (int, error)
}
