// Package audit implements the best-effort audit trail. Entries are handed
// off after commit and never influence the outcome of the operation that
// produced them.
package audit

import "time"

// Action tags recorded on the audit trail.
const (
	ActionLogin            = "LOGIN"
	ActionFillPrescription = "FILL_RX"
	ActionAddPatient       = "ADD_PATIENT"
	ActionAddMedication    = "ADD_MEDICATION"
	ActionAdjustInventory  = "ADJUST_INVENTORY"
)

// Entry is one append-only audit record.
type Entry struct {
	ID        int64     `json:"id"`
	Actor     string    `json:"username"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}
