package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PGSink is the append-only PostgreSQL audit log. The relay writes through
// Append; the log viewer reads through List. The core never reads it.
type PGSink struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPGSink creates a new sink.
func NewPGSink(pool *pgxpool.Pool, logger *zap.Logger) *PGSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PGSink{pool: pool, logger: logger}
}

// Append inserts one entry.
func (s *PGSink) Append(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (username, action, details, timestamp) VALUES ($1, $2, $3, $4)`,
		e.Actor, e.Action, e.Details, e.Timestamp)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// List returns the newest entries first, capped at limit.
func (s *PGSink) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, action, details, timestamp
		 FROM audit_log ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
