package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Ledger performs the check-and-decrement protocol on medication stock.
// Both operations run on the caller's transaction so the stock a Reserve
// observed is the same stock the matching Decrement applies to; the row lock
// taken by Reserve serializes concurrent fulfillments of one medication.
type Ledger struct {
	logger *zap.Logger
}

// NewLedger creates a stock ledger.
func NewLedger(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{logger: logger}
}

// Reserve verifies that the medication exists and has at least qty units on
// hand, locking the row for the remainder of the transaction. Returns
// ErrNotFound or ErrInsufficientStock without writing anything.
func (l *Ledger) Reserve(ctx context.Context, tx pgx.Tx, medicationID int64, qty int) error {
	var stock int
	err := tx.QueryRow(ctx,
		`SELECT stock FROM medications WHERE id = $1 FOR UPDATE`,
		medicationID,
	).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read stock: %w", err)
	}

	if stock < qty {
		l.logger.Debug("reservation rejected",
			zap.Int64("medication_id", medicationID),
			zap.Int("on_hand", stock),
			zap.Int("requested", qty))
		return fmt.Errorf("%w: %d on hand, %d requested", ErrInsufficientStock, stock, qty)
	}
	return nil
}

// Decrement applies the stock deduction for a reservation made earlier in the
// same transaction and returns the stock remaining after it. Reserve must
// have succeeded first; the row lock it holds guarantees the stock cannot
// have changed in between.
func (l *Ledger) Decrement(ctx context.Context, tx pgx.Tx, medicationID int64, qty int) (int, error) {
	var remaining int
	err := tx.QueryRow(ctx,
		`UPDATE medications SET stock = stock - $2, updated_at = NOW() WHERE id = $1 RETURNING stock`,
		medicationID, qty,
	).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("decrement stock: medication %d vanished mid-transaction", medicationID)
	}
	if err != nil {
		return 0, fmt.Errorf("decrement stock: %w", err)
	}
	return remaining, nil
}
