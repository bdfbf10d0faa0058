package reservation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reservation states. RESERVED and PARTIALLY_USED are active (they hold a
// claim on committed stock); USED and CANCELLED are terminal.
const (
	StateReserved      = "RESERVED"
	StatePartiallyUsed = "PARTIALLY_USED"
	StateUsed          = "USED"
	StateCancelled     = "CANCELLED"
)

// Resolution reasons recorded when a reservation leaves the active states.
const (
	ReasonUsed     = "used"
	ReasonSwapped  = "swapped"
	ReasonStolen   = "stolen"
	ReasonExpired  = "lot_expired"
	ReasonRecalled = "lot_recalled"
)

// Reservation is a claim of Quantity units on one lot for one case. Quantity
// is the remaining (unconsumed) claim; Consumed accumulates what has already
// been drawn down. The matching committed stock on the lot always equals
// Quantity while the reservation is active.
type Reservation struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	CaseID           uuid.UUID  `db:"case_id" json:"case_id"`
	ProductID        uuid.UUID  `db:"product_id" json:"product_id"`
	LotID            uuid.UUID  `db:"lot_id" json:"lot_id"`
	Quantity         int        `db:"quantity" json:"quantity"`
	Consumed         int        `db:"consumed" json:"consumed"`
	State            string     `db:"state" json:"state"`
	CreatedBy        string     `db:"created_by" json:"created_by"`
	ResolutionReason *string    `db:"resolution_reason" json:"resolution_reason,omitempty"`
	SupersededBy     *uuid.UUID `db:"superseded_by" json:"superseded_by,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt       *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Active reports whether the reservation still holds a claim.
func (r *Reservation) Active() bool {
	return r.State == StateReserved || r.State == StatePartiallyUsed
}

// Use draws qty units off the reservation. Drawing the full remainder closes
// it as USED; a partial draw moves it to PARTIALLY_USED. Returns the quantity
// still reserved afterwards.
func (r *Reservation) Use(qty int) (int, error) {
	if !r.Active() {
		return 0, fmt.Errorf("use on %s reservation: %w", r.State, ErrInvalidTransition)
	}
	if qty <= 0 {
		return 0, fmt.Errorf("use quantity must be positive: %w", ErrOverConsumption)
	}
	if qty > r.Quantity {
		return 0, fmt.Errorf("use %d exceeds reserved %d: %w", qty, r.Quantity, ErrOverConsumption)
	}
	r.Quantity -= qty
	r.Consumed += qty
	if r.Quantity == 0 {
		r.State = StateUsed
		now := time.Now()
		r.ResolvedAt = &now
		reason := ReasonUsed
		r.ResolutionReason = &reason
	} else {
		r.State = StatePartiallyUsed
	}
	return r.Quantity, nil
}

// Cancel releases the remaining claim. The reason is mandatory; partially
// used reservations keep their Consumed tally.
func (r *Reservation) Cancel(reason string) error {
	if !r.Active() {
		return fmt.Errorf("cancel on %s reservation: %w", r.State, ErrInvalidTransition)
	}
	if reason == "" {
		return ErrReasonRequired
	}
	r.State = StateCancelled
	r.ResolutionReason = &reason
	now := time.Now()
	r.ResolvedAt = &now
	return nil
}

// Split carves qty units out of an active reservation, leaving the rest of
// the claim in place. Used for partial steals; the carved quantity becomes a
// new reservation owned by the caller.
func (r *Reservation) Split(qty int) error {
	if !r.Active() {
		return fmt.Errorf("split on %s reservation: %w", r.State, ErrInvalidTransition)
	}
	if qty <= 0 || qty >= r.Quantity {
		return fmt.Errorf("split %d of %d reserved: %w", qty, r.Quantity, ErrInvalidTransition)
	}
	r.Quantity -= qty
	return nil
}

// Supersede cancels this reservation in favor of another one (swap or steal),
// recording the lineage.
func (r *Reservation) Supersede(reason string, by uuid.UUID) error {
	if err := r.Cancel(reason); err != nil {
		return err
	}
	r.SupersededBy = &by
	return nil
}

// MaterialUsageRecord is the append-only audit line for consumed stock. Every
// unit that leaves the shelf has exactly one of these, whether it was
// reserved (ReservationID set) or drawn ad hoc (ReservationID nil, Reason
// mandatory).
type MaterialUsageRecord struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	CaseID        uuid.UUID  `db:"case_id" json:"case_id"`
	ReservationID *uuid.UUID `db:"reservation_id" json:"reservation_id,omitempty"`
	ProductID     uuid.UUID  `db:"product_id" json:"product_id"`
	LotID         uuid.UUID  `db:"lot_id" json:"lot_id"`
	QuantityUsed  int        `db:"quantity_used" json:"quantity_used"`
	EvidenceRef   string     `db:"evidence_ref" json:"evidence_ref"`
	Reason        *string    `db:"reason" json:"reason,omitempty"`
	RecordedBy    string     `db:"recorded_by" json:"recorded_by"`
	RecordedAt    time.Time  `db:"recorded_at" json:"recorded_at"`
}
