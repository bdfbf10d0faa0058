package casefile

import (
	"time"

	"github.com/google/uuid"
)

// Readiness traffic light for a case's material situation. Order matters:
// worst wins when aggregating needs.
const (
	ReadinessNone     = "NONE"
	ReadinessReady    = "READY"
	ReadinessPartial  = "PARTIAL"
	ReadinessShortage = "SHORTAGE"
)

// Case statuses.
const (
	CaseStatusPlanned   = "planned"
	CaseStatusScheduled = "scheduled"
	CaseStatusCompleted = "completed"
	CaseStatusCancelled = "cancelled"
)

var validCaseStatuses = map[string]bool{
	CaseStatusPlanned: true, CaseStatusScheduled: true,
	CaseStatusCompleted: true, CaseStatusCancelled: true,
}

// ClinicalCase is a planned treatment that consumes materials. Readiness is
// derived from needs and reservations; it is persisted here for listing but
// only written through the readiness evaluator.
type ClinicalCase struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientRef    string     `db:"patient_ref" json:"patient_ref"`
	Title         string     `db:"title" json:"title"`
	ClinicianRef  *string    `db:"clinician_ref" json:"clinician_ref,omitempty"`
	ScheduledDate *time.Time `db:"scheduled_date" json:"scheduled_date,omitempty"`
	Status        string     `db:"status" json:"status"`
	Readiness     string     `db:"readiness" json:"readiness"`
	Note          *string    `db:"note" json:"note,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// MaterialNeed declares that a case requires a quantity of a product.
type MaterialNeed struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CaseID    uuid.UUID `db:"case_id" json:"case_id"`
	ProductID uuid.UUID `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Note      *string   `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
