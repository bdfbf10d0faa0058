package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry for a consumable the clinic stocks: implants,
// membranes, graft material, anesthetics. TracksExpiry decides whether lots of
// this product must carry an expiry date.
type Product struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	Name         string    `db:"name" json:"name"`
	Category     string    `db:"category" json:"category"`
	Unit         string    `db:"unit" json:"unit"`
	TracksExpiry bool      `db:"tracks_expiry" json:"tracks_expiry"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	Note         *string   `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

var validCategories = map[string]bool{
	"implant": true, "membrane": true, "graft": true,
	"anesthetic": true, "suture": true, "consumable": true,
}
