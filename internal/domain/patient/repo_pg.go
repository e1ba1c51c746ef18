package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PGRepository is the PostgreSQL patient directory.
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

const patientColumns = `id, name, birth_date, phone, email, address, city, state, postal_code,
	health_card_num, allergies, insurance_provider, insurance_id, created_at`

// Create inserts a new patient.
func (r *PGRepository) Create(ctx context.Context, p *Patient) error {
	query := `
		INSERT INTO patients
		(name, birth_date, phone, email, address, city, state, postal_code,
		 health_card_num, allergies, insurance_provider, insurance_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		p.Name, p.BirthDate, p.Phone, p.Email, p.Address, p.City, p.State,
		p.PostalCode, p.HealthCardNum, p.Allergies, p.InsuranceProvider, p.InsuranceID,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

// GetByID returns one patient or ErrNotFound.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Patient, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

// List returns all patients ordered by name.
func (r *PGRepository) List(ctx context.Context) ([]*Patient, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+patientColumns+` FROM patients ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	p := &Patient{}
	err := row.Scan(&p.ID, &p.Name, &p.BirthDate, &p.Phone, &p.Email, &p.Address,
		&p.City, &p.State, &p.PostalCode, &p.HealthCardNum, &p.Allergies,
		&p.InsuranceProvider, &p.InsuranceID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	return p, nil
}
