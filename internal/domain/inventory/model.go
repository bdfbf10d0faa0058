package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Lot statuses.
const (
	LotStatusActive   = "active"
	LotStatusDepleted = "depleted"
	LotStatusBlocked  = "blocked"
)

var validLotStatuses = map[string]bool{
	LotStatusActive: true, LotStatusDepleted: true, LotStatusBlocked: true,
}

// StockLot maps to the stock_lot table. A lot is one received batch of one
// product; it is created on goods receipt and never deleted, only
// status-transitioned.
type StockLot struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ProductID    uuid.UUID  `db:"product_id" json:"product_id"`
	LotCode      string     `db:"lot_code" json:"lot_code"`
	ExpiryDate   *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	OnHandQty    int        `db:"on_hand_qty" json:"on_hand_qty"`
	CommittedQty int        `db:"committed_qty" json:"committed_qty"`
	Status       string     `db:"status" json:"status"`
	ReceivedBy   string     `db:"received_by" json:"received_by"`
	Note         *string    `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Available returns the quantity not yet claimed by a reservation.
func (l *StockLot) Available() int { return l.OnHandQty - l.CommittedQty }

// Expired reports whether the lot's expiry date has passed at ref.
// Lots without an expiry date never expire.
func (l *StockLot) Expired(ref time.Time) bool {
	return l.ExpiryDate != nil && l.ExpiryDate.Before(ref)
}
