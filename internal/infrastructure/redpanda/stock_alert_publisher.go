package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/blisstech/go-rxfill/internal/domain/inventory"
	"github.com/blisstech/go-rxfill/pkg/circuitbreaker"
)

// StockAlert is the payload published when a fill draws a medication below
// the reorder threshold.
type StockAlert struct {
	MedicationID int64     `json:"medication_id"`
	Remaining    int       `json:"remaining"`
	Threshold    int       `json:"threshold"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// StockAlertPublisher publishes low-stock alerts to the stock alerts topic
// through a circuit breaker. It implements fulfillment.StockAlerter.
type StockAlertPublisher struct {
	producer *Producer
	breaker  *circuitbreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewStockAlertPublisher creates a stock alert publisher.
func NewStockAlertPublisher(producer *Producer, logger *zap.Logger) (*StockAlertPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker, err := circuitbreaker.New(circuitbreaker.DefaultConfig("stock-alerts"), logger)
	if err != nil {
		return nil, fmt.Errorf("create breaker: %w", err)
	}

	return &StockAlertPublisher{
		producer: producer,
		breaker:  breaker,
		logger:   logger,
	}, nil
}

// LowStock publishes one alert. The key is the medication id so alerts for a
// medication stay ordered within a partition.
func (p *StockAlertPublisher) LowStock(ctx context.Context, medicationID int64, remaining int) error {
	payload, err := json.Marshal(StockAlert{
		MedicationID: medicationID,
		Remaining:    remaining,
		Threshold:    inventory.LowStockThreshold,
		OccurredAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal stock alert: %w", err)
	}

	_, err = p.breaker.Execute(ctx, func() (interface{}, error) {
		return nil, p.producer.ProduceMessage(ctx, TopicStockAlerts, strconv.FormatInt(medicationID, 10), payload)
	})
	return err
}
