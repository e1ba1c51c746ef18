package inventory

import "context"

// StockUpdate carries the mutable formulary fields. Nil fields are left
// untouched; stock changes here are absolute adjustments (receiving,
// cycle counts), never fulfillment decrements -- those go through the Ledger.
type StockUpdate struct {
	Stock       *int
	Price       *float64
	Description *string
}

// Repository is the formulary persistence boundary.
type Repository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id int64) (*Medication, error)
	List(ctx context.Context) ([]*Medication, error)
	Update(ctx context.Context, id int64, upd StockUpdate) (*Medication, error)
	CountLowStock(ctx context.Context, threshold int) (int, error)
}
