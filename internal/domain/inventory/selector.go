package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// PlanLine is one lot's contribution to a proposed allocation.
type PlanLine struct {
	LotID    uuid.UUID `json:"lot_id"`
	LotCode  string    `json:"lot_code"`
	Quantity int       `json:"quantity"`
}

// Plan is a FEFO proposal. It is a suggestion computed from a snapshot, not a
// claim: availability can change between proposing and committing, and
// CommitPlan re-checks every line.
type Plan struct {
	ProductID    uuid.UUID  `json:"product_id"`
	Lines        []PlanLine `json:"lines"`
	Insufficient bool       `json:"insufficient"`
	Shortfall    int        `json:"shortfall,omitempty"`
}

// Total returns the quantity the plan covers.
func (p *Plan) Total() int {
	t := 0
	for _, ln := range p.Lines {
		t += ln.Quantity
	}
	return t
}

// Selector proposes first-expiry-first-out allocations over active lots.
type Selector struct {
	lots LotRepository
	now  func() time.Time
}

func NewSelector(lots LotRepository) *Selector {
	return &Selector{lots: lots, now: time.Now}
}

// Propose builds a plan covering qty units of a product: lots ordered by
// soonest expiry first, undated lots last, lot code as the tiebreak. Expired,
// blocked, and excluded lots are skipped. If stock runs out the plan still
// carries the partial lines, with Insufficient set and the shortfall recorded.
func (s *Selector) Propose(ctx context.Context, productID uuid.UUID, qty int, exclude map[uuid.UUID]bool) (*Plan, error) {
	lots, err := s.lots.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	ref := s.now()
	candidates := make([]*StockLot, 0, len(lots))
	for _, l := range lots {
		if l.Status != LotStatusActive || l.Expired(ref) || exclude[l.ID] || l.Available() <= 0 {
			continue
		}
		candidates = append(candidates, l)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate == nil:
			return a.LotCode < b.LotCode
		case a.ExpiryDate == nil:
			return false
		case b.ExpiryDate == nil:
			return true
		case a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.LotCode < b.LotCode
		default:
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
	})

	plan := &Plan{ProductID: productID}
	remaining := qty
	for _, l := range candidates {
		if remaining == 0 {
			break
		}
		take := l.Available()
		if take > remaining {
			take = remaining
		}
		plan.Lines = append(plan.Lines, PlanLine{LotID: l.ID, LotCode: l.LotCode, Quantity: take})
		remaining -= take
	}
	if remaining > 0 {
		plan.Insufficient = true
		plan.Shortfall = remaining
	}
	return plan, nil
}

// AvailableTotal sums the available quantity of a product's usable lots.
func (s *Selector) AvailableTotal(ctx context.Context, productID uuid.UUID) (int, error) {
	lots, err := s.lots.ListByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	ref := s.now()
	total := 0
	for _, l := range lots {
		if l.Status != LotStatusActive || l.Expired(ref) {
			continue
		}
		if a := l.Available(); a > 0 {
			total += a
		}
	}
	return total, nil
}
