package fulfillment

import "context"

// StockAlerter is notified when a fulfillment draws a medication below the
// low-stock threshold. Delivery is best-effort: a failed alert never affects
// the fill that triggered it.
type StockAlerter interface {
	LowStock(ctx context.Context, medicationID int64, remaining int) error
}

// NopAlerter discards alerts.
type NopAlerter struct{}

func (NopAlerter) LowStock(context.Context, int64, int) error { return nil }
