// Package inventory implements the medication formulary and the stock ledger.
package inventory

import (
	"errors"
	"time"
)

// LowStockThreshold is the stock level below which a medication counts as a
// stock warning on the dashboard.
const LowStockThreshold = 100

// Sentinel errors returned by the ledger and the repository.
var (
	ErrNotFound          = errors.New("medication not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateDIN      = errors.New("medication with this DIN already exists")
)

// Medication is a formulary entry. DIN is the mandatory unique catalog code;
// NDC is the optional secondary one. Stock is only mutated through explicit
// adjustments or fulfillment decrements.
type Medication struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DIN         string    `json:"din"`
	NDC         *string   `json:"ndc,omitempty"`
	Description *string   `json:"description,omitempty"`
	Stock       int       `json:"stock"`
	Price       float64   `json:"price"`
	Expiration  time.Time `json:"expiration"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the fields required to admit a medication to the formulary.
func (m *Medication) Validate() error {
	if m.Name == "" {
		return errors.New("name is required")
	}
	if m.DIN == "" {
		return errors.New("din is required")
	}
	if m.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	if m.Price < 0 {
		return errors.New("price must not be negative")
	}
	return nil
}

// LowStock reports whether the medication is below the warning threshold.
func (m *Medication) LowStock() bool {
	return m.Stock < LowStockThreshold
}
