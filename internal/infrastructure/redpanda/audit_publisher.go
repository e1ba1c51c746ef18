package redpanda

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/blisstech/go-rxfill/internal/domain/audit"
	"github.com/blisstech/go-rxfill/pkg/circuitbreaker"
)

// AuditPublisher publishes audit entries to the audit events topic through a
// circuit breaker. When the broker is unhealthy the breaker opens and
// publishes fail fast, which the recorder treats as a drop.
type AuditPublisher struct {
	producer *Producer
	breaker  *circuitbreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewAuditPublisher creates an audit publisher.
func NewAuditPublisher(producer *Producer, logger *zap.Logger) (*AuditPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker, err := circuitbreaker.New(circuitbreaker.DefaultConfig("audit-publisher"), logger)
	if err != nil {
		return nil, fmt.Errorf("create breaker: %w", err)
	}

	return &AuditPublisher{
		producer: producer,
		breaker:  breaker,
		logger:   logger,
	}, nil
}

// Publish implements audit.Publisher. The entry key is the actor so one
// user's entries stay ordered within a partition.
func (p *AuditPublisher) Publish(ctx context.Context, e audit.Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	_, err = p.breaker.Execute(ctx, func() (interface{}, error) {
		return nil, p.producer.ProduceMessage(ctx, TopicAuditEvents, e.Actor, payload)
	})
	return err
}
