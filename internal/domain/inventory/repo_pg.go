package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PGRepository is the PostgreSQL formulary repository.
type PGRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPGRepository creates a new repository.
func NewPGRepository(pool *pgxpool.Pool, logger *zap.Logger) *PGRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PGRepository{pool: pool, logger: logger}
}

const medicationColumns = `id, name, din, ndc, description, stock, price, expiration, created_at, updated_at`

// Create inserts a new formulary entry. The DIN must be unique.
func (r *PGRepository) Create(ctx context.Context, m *Medication) error {
	query := `
		INSERT INTO medications (name, din, ndc, description, stock, price, expiration)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		m.Name, m.DIN, m.NDC, m.Description, m.Stock, m.Price, m.Expiration,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateDIN
		}
		return fmt.Errorf("insert medication: %w", err)
	}
	return nil
}

// GetByID returns one medication or ErrNotFound.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Medication, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+medicationColumns+` FROM medications WHERE id = $1`, id)
	return scanMedication(row)
}

// List returns the full formulary ordered by name.
func (r *PGRepository) List(ctx context.Context) ([]*Medication, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+medicationColumns+` FROM medications ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()

	var meds []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		meds = append(meds, m)
	}
	return meds, rows.Err()
}

// Update applies an explicit stock/price/description adjustment and returns
// the updated row.
func (r *PGRepository) Update(ctx context.Context, id int64, upd StockUpdate) (*Medication, error) {
	query := `
		UPDATE medications
		SET stock = COALESCE($2, stock),
		    price = COALESCE($3, price),
		    description = COALESCE($4, description),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + medicationColumns
	row := r.pool.QueryRow(ctx, query, id, upd.Stock, upd.Price, upd.Description)
	return scanMedication(row)
}

// CountLowStock counts medications with stock strictly below threshold.
func (r *PGRepository) CountLowStock(ctx context.Context, threshold int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM medications WHERE stock < $1`, threshold).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count low stock: %w", err)
	}
	return n, nil
}

func scanMedication(row pgx.Row) (*Medication, error) {
	m := &Medication{}
	err := row.Scan(&m.ID, &m.Name, &m.DIN, &m.NDC, &m.Description,
		&m.Stock, &m.Price, &m.Expiration, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan medication: %w", err)
	}
	return m, nil
}
