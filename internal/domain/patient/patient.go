// Package patient provides the patient directory. Plain field storage: the
// fulfillment engine only ever reads identities and names from here.
package patient

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a patient id is unknown.
var ErrNotFound = errors.New("patient not found")

// Patient is a directory entry.
type Patient struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	BirthDate         time.Time `json:"birth_date"`
	Phone             string    `json:"phone"`
	Email             *string   `json:"email,omitempty"`
	Address           *string   `json:"address,omitempty"`
	City              *string   `json:"city,omitempty"`
	State             *string   `json:"state,omitempty"`
	PostalCode        *string   `json:"postal_code,omitempty"`
	HealthCardNum     *string   `json:"health_card_num,omitempty"`
	Allergies         *string   `json:"allergies,omitempty"`
	InsuranceProvider *string   `json:"insurance_provider,omitempty"`
	InsuranceID       *string   `json:"insurance_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Validate checks required directory fields.
func (p *Patient) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.BirthDate.IsZero() {
		return errors.New("birth_date is required")
	}
	if p.Phone == "" {
		return errors.New("phone is required")
	}
	return nil
}
