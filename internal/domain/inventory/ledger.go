package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Ledger owns the committed/on-hand arithmetic for stock lots. It checks the
// ledger invariant (0 <= committed <= on_hand) inside every mutation and
// refuses any write that would break it.
//
// The Ledger does no locking itself: the caller must hold the lot's section
// (LotLocker) around any mutation, and the sections of every lot involved in a
// multi-lot call.
type Ledger struct {
	lots LotRepository
}

func NewLedger(lots LotRepository) *Ledger { return &Ledger{lots: lots} }

func (g *Ledger) activeLot(ctx context.Context, lotID uuid.UUID) (*StockLot, error) {
	l, err := g.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if l.Status != LotStatusActive {
		return nil, fmt.Errorf("lot %s: %w", l.LotCode, ErrLotNotActive)
	}
	return l, nil
}

// Available reports the uncommitted quantity of a lot.
func (g *Ledger) Available(ctx context.Context, lotID uuid.UUID) (int, error) {
	l, err := g.lots.GetByID(ctx, lotID)
	if err != nil {
		return 0, err
	}
	return l.Available(), nil
}

// Commit claims qty units of a lot for a reservation. Fails with
// InsufficientStockError when the lot's available quantity is below qty.
func (g *Ledger) Commit(ctx context.Context, lotID uuid.UUID, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("commit quantity must be positive: %w", ErrInvariantViolation)
	}
	l, err := g.activeLot(ctx, lotID)
	if err != nil {
		return err
	}
	if l.Available() < qty {
		return &InsufficientStockError{ProductID: l.ProductID.String(), Requested: qty, Available: l.Available()}
	}
	l.CommittedQty += qty
	return g.lots.UpdateQuantities(ctx, l)
}

// Release returns qty committed units of a lot to the available pool.
func (g *Ledger) Release(ctx context.Context, lotID uuid.UUID, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("release quantity must be positive: %w", ErrInvariantViolation)
	}
	l, err := g.lots.GetByID(ctx, lotID)
	if err != nil {
		return err
	}
	if l.CommittedQty < qty {
		return fmt.Errorf("release %d exceeds committed %d on lot %s: %w",
			qty, l.CommittedQty, l.LotCode, ErrInvariantViolation)
	}
	l.CommittedQty -= qty
	return g.lots.UpdateQuantities(ctx, l)
}

// Consume removes qty units that were previously committed: both on_hand and
// committed decrease together, so the lot's available quantity is unchanged.
// A lot drained to zero flips to depleted.
func (g *Ledger) Consume(ctx context.Context, lotID uuid.UUID, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("consume quantity must be positive: %w", ErrInvariantViolation)
	}
	l, err := g.lots.GetByID(ctx, lotID)
	if err != nil {
		return err
	}
	if l.CommittedQty < qty || l.OnHandQty < qty {
		return fmt.Errorf("consume %d exceeds committed %d / on-hand %d on lot %s: %w",
			qty, l.CommittedQty, l.OnHandQty, l.LotCode, ErrInvariantViolation)
	}
	l.OnHandQty -= qty
	l.CommittedQty -= qty
	if l.OnHandQty == 0 {
		l.Status = LotStatusDepleted
	}
	return g.lots.UpdateQuantities(ctx, l)
}

// ConsumeAvailable removes qty units straight from the uncommitted pool,
// bypassing any reservation. Used for walk-in usage of unreserved stock; it
// never touches quantities other cases have committed.
func (g *Ledger) ConsumeAvailable(ctx context.Context, lotID uuid.UUID, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("consume quantity must be positive: %w", ErrInvariantViolation)
	}
	l, err := g.activeLot(ctx, lotID)
	if err != nil {
		return err
	}
	if l.Available() < qty {
		return &InsufficientStockError{ProductID: l.ProductID.String(), Requested: qty, Available: l.Available()}
	}
	l.OnHandQty -= qty
	if l.OnHandQty == 0 {
		l.Status = LotStatusDepleted
	}
	return g.lots.UpdateQuantities(ctx, l)
}

// CommitPlan commits every line of a FEFO plan, all or nothing. If a later
// line fails, lines already committed are released again, so a stale plan
// leaves no partial claim behind. The caller must hold the sections of every
// lot in the plan.
func (g *Ledger) CommitPlan(ctx context.Context, plan *Plan) error {
	done := make([]PlanLine, 0, len(plan.Lines))
	for _, line := range plan.Lines {
		if err := g.Commit(ctx, line.LotID, line.Quantity); err != nil {
			for i := len(done) - 1; i >= 0; i-- {
				if rerr := g.Release(ctx, done[i].LotID, done[i].Quantity); rerr != nil {
					return fmt.Errorf("rollback of lot %s after failed plan: %v: %w",
						done[i].LotID, rerr, ErrInvariantViolation)
				}
			}
			return err
		}
		done = append(done, line)
	}
	return nil
}

// ReleasePlan undoes a previously committed plan line by line.
func (g *Ledger) ReleasePlan(ctx context.Context, plan *Plan) error {
	for _, line := range plan.Lines {
		if err := g.Release(ctx, line.LotID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Transfer moves a claim between lots: releases releaseQty on fromLot and
// commits commitQty on toLot as one step. When both ids name the same lot the
// release is counted into that lot's availability before the commit is
// checked. The caller must hold both sections.
func (g *Ledger) Transfer(ctx context.Context, fromLot uuid.UUID, releaseQty int, toLot uuid.UUID, commitQty int) error {
	if fromLot == toLot {
		l, err := g.activeLot(ctx, fromLot)
		if err != nil {
			return err
		}
		if l.CommittedQty < releaseQty {
			return fmt.Errorf("release %d exceeds committed %d on lot %s: %w",
				releaseQty, l.CommittedQty, l.LotCode, ErrInvariantViolation)
		}
		if l.Available()+releaseQty < commitQty {
			return &InsufficientStockError{ProductID: l.ProductID.String(), Requested: commitQty, Available: l.Available() + releaseQty}
		}
		l.CommittedQty = l.CommittedQty - releaseQty + commitQty
		return g.lots.UpdateQuantities(ctx, l)
	}

	if err := g.Commit(ctx, toLot, commitQty); err != nil {
		return err
	}
	if err := g.Release(ctx, fromLot, releaseQty); err != nil {
		if rerr := g.Release(ctx, toLot, commitQty); rerr != nil {
			return fmt.Errorf("rollback of transfer commit failed: %v: %w", rerr, ErrInvariantViolation)
		}
		return err
	}
	return nil
}
