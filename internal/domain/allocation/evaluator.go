package allocation

import (
	"context"

	"github.com/google/uuid"

	"github.com/kpcrmv4/dentalos-sub000/internal/domain/casefile"
	"github.com/kpcrmv4/dentalos-sub000/internal/domain/inventory"
	"github.com/kpcrmv4/dentalos-sub000/internal/domain/reservation"
)

// NeedReadiness is the evaluator's verdict for a single declared need.
type NeedReadiness struct {
	ProductID uuid.UUID `json:"product_id"`
	Required  int       `json:"required"`
	Covered   int       `json:"covered"`
	Available int       `json:"available"`
	Verdict   string    `json:"verdict"`
}

// CaseReadiness aggregates per-need verdicts; the worst-off need decides the
// overall traffic light.
type CaseReadiness struct {
	CaseID  uuid.UUID       `json:"case_id"`
	Overall string          `json:"overall"`
	Needs   []NeedReadiness `json:"needs"`
}

// Evaluator derives a case's readiness from its declared needs, its
// reservations and usage so far, and what is still on the shelf. It never
// mutates anything; persisting and notifying a changed verdict is the
// coordinator's job.
type Evaluator struct {
	needs        casefile.NeedRepository
	reservations reservation.ReservationRepository
	usages       reservation.UsageRepository
	selector     *inventory.Selector

	// StrictShortage flags an under-covered need as SHORTAGE as soon as the
	// remaining shelf stock cannot close the gap. With it off, a need with
	// any coverage at all stays PARTIAL.
	StrictShortage bool
}

func NewEvaluator(needs casefile.NeedRepository, reservations reservation.ReservationRepository,
	usages reservation.UsageRepository, selector *inventory.Selector) *Evaluator {
	return &Evaluator{
		needs:          needs,
		reservations:   reservations,
		usages:         usages,
		selector:       selector,
		StrictShortage: true,
	}
}

// Evaluate computes the readiness of one case.
//
// A need counts as covered by: active reservation quantity, quantity already
// consumed through any reservation of the product, and ad-hoc usage of the
// product recorded against the case. A case with no declared needs is READY.
func (e *Evaluator) Evaluate(ctx context.Context, caseID uuid.UUID) (*CaseReadiness, error) {
	needs, err := e.needs.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	reservations, err := e.reservations.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	usages, err := e.usages.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	reserved := make(map[uuid.UUID]int)
	consumed := make(map[uuid.UUID]int)
	for _, r := range reservations {
		if r.Active() {
			reserved[r.ProductID] += r.Quantity
		}
		consumed[r.ProductID] += r.Consumed
	}
	adhoc := make(map[uuid.UUID]int)
	for _, u := range usages {
		if u.ReservationID == nil {
			adhoc[u.ProductID] += u.QuantityUsed
		}
	}

	result := &CaseReadiness{CaseID: caseID}
	for _, n := range needs {
		covered := reserved[n.ProductID] + consumed[n.ProductID] + adhoc[n.ProductID]
		available, err := e.selector.AvailableTotal(ctx, n.ProductID)
		if err != nil {
			return nil, err
		}
		nr := NeedReadiness{ProductID: n.ProductID, Required: n.Quantity, Covered: covered, Available: available}
		gap := n.Quantity - covered
		switch {
		case gap <= 0:
			nr.Verdict = casefile.ReadinessReady
		case covered > 0:
			if e.StrictShortage && available < gap {
				nr.Verdict = casefile.ReadinessShortage
			} else {
				nr.Verdict = casefile.ReadinessPartial
			}
		default:
			if available >= gap {
				nr.Verdict = casefile.ReadinessNone
			} else {
				nr.Verdict = casefile.ReadinessShortage
			}
		}
		result.Needs = append(result.Needs, nr)
	}

	result.Overall = aggregate(result.Needs)
	return result, nil
}

// aggregate folds per-need verdicts into one: SHORTAGE beats PARTIAL beats
// the rest; untouched needs next to covered ones read as PARTIAL overall.
func aggregate(needs []NeedReadiness) string {
	if len(needs) == 0 {
		return casefile.ReadinessReady
	}
	var hasNone, hasReady bool
	for _, n := range needs {
		switch n.Verdict {
		case casefile.ReadinessShortage:
			return casefile.ReadinessShortage
		case casefile.ReadinessPartial:
			return casefile.ReadinessPartial
		case casefile.ReadinessNone:
			hasNone = true
		case casefile.ReadinessReady:
			hasReady = true
		}
	}
	switch {
	case hasNone && hasReady:
		return casefile.ReadinessPartial
	case hasNone:
		return casefile.ReadinessNone
	default:
		return casefile.ReadinessReady
	}
}
