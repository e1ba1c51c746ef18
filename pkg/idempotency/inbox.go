// Package idempotency lets a retried fill submission reuse the outcome of
// the original instead of dispensing twice. Keys are deterministic:
// Hash(prescriber + patient + medication + minute bucket).
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Status represents the processing status of an inbox entry
type Status string

const (
	StatusStarted  Status = "STARTED"
	StatusFinished Status = "FINISHED"
)

// ErrInProgress indicates the same key is currently being processed.
var ErrInProgress = errors.New("request in progress")

// GenerateKey builds a deterministic idempotency key. Timestamps are
// bucketed to the minute so an immediate retry matches while a genuine
// refill days later does not.
func GenerateKey(prescriber string, patientID, medicationID int64, ts time.Time) string {
	bucket := ts.UTC().Truncate(time.Minute)
	input := fmt.Sprintf("%s|%d|%d|%s", prescriber, patientID, medicationID, bucket.Format(time.RFC3339))
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// InboxConfig holds configuration for the inbox
type InboxConfig struct {
	// RecoveryTimeout is when to consider a STARTED entry as stale
	RecoveryTimeout time.Duration
}

// DefaultInboxConfig returns sensible defaults
func DefaultInboxConfig() InboxConfig {
	return InboxConfig{RecoveryTimeout: 5 * time.Minute}
}

// Inbox stores processed keys and their results in Postgres.
type Inbox struct {
	pool   *pgxpool.Pool
	config InboxConfig
	logger *zap.Logger
}

// NewInbox creates an inbox.
func NewInbox(pool *pgxpool.Pool, cfg InboxConfig, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultInboxConfig().RecoveryTimeout
	}
	return &Inbox{pool: pool, config: cfg, logger: logger}
}

// ProcessResult carries the outcome of idempotent processing. IsNew is false
// when a stored result was replayed.
type ProcessResult struct {
	IsNew  bool
	Result json.RawMessage
}

// ProcessFunc is the handler executed for a new key.
type ProcessFunc func(ctx context.Context) (json.RawMessage, error)

// Process runs fn at most once per key. A finished key replays its stored
// result; a started key that has not gone stale is rejected with
// ErrInProgress; a stale started key is retried.
func (i *Inbox) Process(ctx context.Context, key string, fn ProcessFunc) (*ProcessResult, error) {
	claimed, stored, err := i.claim(ctx, key)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return &ProcessResult{IsNew: false, Result: stored}, nil
	}

	result, err := fn(ctx)
	if err != nil {
		// Release the claim so the caller can retry the whole request.
		if _, delErr := i.pool.Exec(ctx, `DELETE FROM fill_inbox WHERE idempotency_key = $1`, key); delErr != nil {
			i.logger.Warn("failed to release inbox claim", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}

	_, err = i.pool.Exec(ctx,
		`UPDATE fill_inbox SET status = $2, result = $3, updated_at = NOW() WHERE idempotency_key = $1`,
		key, StatusFinished, result)
	if err != nil {
		i.logger.Warn("failed to store inbox result", zap.String("key", key), zap.Error(err))
	}

	return &ProcessResult{IsNew: true, Result: result}, nil
}

// claim inserts a STARTED row for the key. Returns claimed=false with the
// stored result when the key already finished.
func (i *Inbox) claim(ctx context.Context, key string) (claimed bool, stored json.RawMessage, err error) {
	tag, err := i.pool.Exec(ctx, `
		INSERT INTO fill_inbox (idempotency_key, status)
		VALUES ($1, $2)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, key, StatusStarted)
	if err != nil {
		return false, nil, fmt.Errorf("claim inbox key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil, nil
	}

	var status Status
	var result json.RawMessage
	var updatedAt time.Time
	err = i.pool.QueryRow(ctx,
		`SELECT status, result, updated_at FROM fill_inbox WHERE idempotency_key = $1`,
		key).Scan(&status, &result, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Row vanished between insert and read; treat as in progress.
		return false, nil, ErrInProgress
	}
	if err != nil {
		return false, nil, fmt.Errorf("read inbox key: %w", err)
	}

	switch status {
	case StatusFinished:
		return false, result, nil
	case StatusStarted:
		if time.Since(updatedAt) > i.config.RecoveryTimeout {
			// Stale claim from a crashed handler: take it over.
			tag, err := i.pool.Exec(ctx, `
				UPDATE fill_inbox SET status = $2, updated_at = NOW()
				WHERE idempotency_key = $1 AND updated_at < NOW() - $3::interval
			`, key, StatusStarted, i.config.RecoveryTimeout.String())
			if err != nil {
				return false, nil, fmt.Errorf("recover inbox key: %w", err)
			}
			if tag.RowsAffected() == 1 {
				return true, nil, nil
			}
		}
		return false, nil, ErrInProgress
	default:
		return false, nil, fmt.Errorf("unknown inbox status %q", status)
	}
}
