package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kpcrmv4/dentalos-sub000/internal/domain/casefile"
	"github.com/kpcrmv4/dentalos-sub000/internal/domain/inventory"
	"github.com/kpcrmv4/dentalos-sub000/internal/domain/reservation"
	"github.com/kpcrmv4/dentalos-sub000/internal/platform/notify"
)

// maxReserveRetries bounds how often reserve re-plans after losing a race to
// a concurrent commit.
const maxReserveRetries = 3

// TxRunner runs a function inside one storage transaction. A nil runner
// executes the function directly (in-memory repositories).
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Deps wires the coordinator's collaborators.
type Deps struct {
	Locker       *inventory.LotLocker
	Ledger       *inventory.Ledger
	Selector     *inventory.Selector
	Lots         inventory.LotRepository
	Reservations reservation.ReservationRepository
	Usages       reservation.UsageRepository
	Cases        casefile.CaseRepository
	Evaluator    *Evaluator
	Sink         notify.Sink
	Tx           TxRunner
	Logger       zerolog.Logger
}

// Coordinator is the only writer that touches the stock ledger and the
// reservation ledger together. Each operation is atomic: both ledgers move,
// or neither does.
type Coordinator struct {
	locker       *inventory.LotLocker
	ledger       *inventory.Ledger
	selector     *inventory.Selector
	lots         inventory.LotRepository
	reservations reservation.ReservationRepository
	usages       reservation.UsageRepository
	cases        casefile.CaseRepository
	evaluator    *Evaluator
	sink         notify.Sink
	tx           TxRunner
	logger       zerolog.Logger
}

func NewCoordinator(d Deps) *Coordinator {
	return &Coordinator{
		locker:       d.Locker,
		ledger:       d.Ledger,
		selector:     d.Selector,
		lots:         d.Lots,
		reservations: d.Reservations,
		usages:       d.Usages,
		cases:        d.Cases,
		evaluator:    d.Evaluator,
		sink:         d.Sink,
		tx:           d.Tx,
		logger:       d.Logger,
	}
}

func (c *Coordinator) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.tx == nil {
		return fn(ctx)
	}
	return c.tx.InTx(ctx, fn)
}

// Reserve claims qty units of a product for a case along a FEFO plan,
// creating one reservation per contributing lot. A plan gone stale between
// proposal and commit is re-planned, up to maxReserveRetries times.
func (c *Coordinator) Reserve(ctx context.Context, caseID, productID uuid.UUID, qty int, actor string) ([]*reservation.Reservation, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("quantity must be positive: %w", reservation.ErrInvalidTransition)
	}
	if _, err := c.cases.GetByID(ctx, caseID); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxReserveRetries; attempt++ {
		plan, err := c.selector.Propose(ctx, productID, qty, nil)
		if err != nil {
			return nil, err
		}
		if plan.Insufficient {
			return nil, &inventory.InsufficientStockError{
				ProductID: productID.String(), Requested: qty, Available: qty - plan.Shortfall,
			}
		}

		created, err := c.commitReservations(ctx, caseID, productID, actor, plan)
		if err == nil {
			c.refreshReadiness(ctx, caseID)
			return created, nil
		}
		if !errors.Is(err, inventory.ErrInsufficientStock) {
			return nil, err
		}
		// Someone claimed the planned stock first; re-plan from fresh state.
		lastErr = err
		c.logger.Debug().Int("attempt", attempt).Str("product_id", productID.String()).
			Msg("stale allocation plan, re-proposing")
	}
	return nil, lastErr
}

func (c *Coordinator) commitReservations(ctx context.Context, caseID, productID uuid.UUID, actor string, plan *inventory.Plan) ([]*reservation.Reservation, error) {
	lotIDs := make([]uuid.UUID, len(plan.Lines))
	for i, line := range plan.Lines {
		lotIDs[i] = line.LotID
	}
	unlock := c.locker.LockAll(lotIDs)
	defer unlock()

	var created []*reservation.Reservation
	err := c.runTx(ctx, func(ctx context.Context) error {
		if err := c.ledger.CommitPlan(ctx, plan); err != nil {
			return err
		}
		for _, line := range plan.Lines {
			rv := &reservation.Reservation{
				ID:        uuid.New(),
				CaseID:    caseID,
				ProductID: productID,
				LotID:     line.LotID,
				Quantity:  line.Quantity,
				State:     reservation.StateReserved,
				CreatedBy: actor,
			}
			if err := c.reservations.Create(ctx, rv); err != nil {
				if rerr := c.ledger.ReleasePlan(ctx, plan); rerr != nil {
					c.logger.Error().Err(rerr).Msg("rollback after reservation create failure")
				}
				return err
			}
			created = append(created, rv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Use draws qty units off a reservation against clinical evidence: the stock
// is consumed, the reservation advances, and an audit record is appended.
func (c *Coordinator) Use(ctx context.Context, reservationID uuid.UUID, qty int, evidenceRef, reason, actor string) (*reservation.Reservation, error) {
	if evidenceRef == "" {
		return nil, reservation.ErrEvidenceRequired
	}
	rv, err := c.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	unlock := c.locker.Lock(rv.LotID)
	defer unlock()

	err = c.runTx(ctx, func(ctx context.Context) error {
		// Re-read inside the section so concurrent uses serialize correctly.
		rv, err = c.reservations.GetByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if _, err := rv.Use(qty); err != nil {
			return err
		}
		if err := c.ledger.Consume(ctx, rv.LotID, qty); err != nil {
			return err
		}
		if err := c.reservations.Update(ctx, rv); err != nil {
			return err
		}
		usage := &reservation.MaterialUsageRecord{
			CaseID:        rv.CaseID,
			ReservationID: &rv.ID,
			ProductID:     rv.ProductID,
			LotID:         rv.LotID,
			QuantityUsed:  qty,
			EvidenceRef:   evidenceRef,
			RecordedBy:    actor,
		}
		if reason != "" {
			usage.Reason = &reason
		}
		return c.usages.Append(ctx, usage)
	})
	if err != nil {
		return nil, err
	}

	c.refreshReadiness(ctx, rv.CaseID)
	return rv, nil
}

// Cancel gives up the remaining claim of a reservation and returns the stock
// to the shelf. The reason is recorded on the resolved reservation.
func (c *Coordinator) Cancel(ctx context.Context, reservationID uuid.UUID, reason, actor string) (*reservation.Reservation, error) {
	if reason == "" {
		return nil, reservation.ErrReasonRequired
	}
	rv, err := c.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	unlock := c.locker.Lock(rv.LotID)
	defer unlock()

	err = c.runTx(ctx, func(ctx context.Context) error {
		rv, err = c.reservations.GetByID(ctx, reservationID)
		if err != nil {
			return err
		}
		remaining := rv.Quantity
		if err := rv.Cancel(reason); err != nil {
			return err
		}
		if err := c.ledger.Release(ctx, rv.LotID, remaining); err != nil {
			return err
		}
		return c.reservations.Update(ctx, rv)
	})
	if err != nil {
		return nil, err
	}

	c.refreshReadiness(ctx, rv.CaseID)
	return rv, nil
}

// Swap moves a reservation's remaining claim to a different lot of the same
// product, typically ahead of an expiry or a recall. The old reservation is
// cancelled with lineage to its successor.
func (c *Coordinator) Swap(ctx context.Context, reservationID, newLotID uuid.UUID, newQty int, reason, actor string) (*reservation.Reservation, error) {
	if reason == "" {
		return nil, reservation.ErrReasonRequired
	}
	rv, err := c.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	newLot, err := c.lots.GetByID(ctx, newLotID)
	if err != nil {
		return nil, err
	}
	if newLot.ProductID != rv.ProductID {
		return nil, fmt.Errorf("swap across products: %w", reservation.ErrInvalidTransition)
	}
	if newQty <= 0 {
		newQty = rv.Quantity
	}

	unlock := c.locker.LockAll([]uuid.UUID{rv.LotID, newLotID})
	defer unlock()

	var successor *reservation.Reservation
	err = c.runTx(ctx, func(ctx context.Context) error {
		rv, err = c.reservations.GetByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if !rv.Active() {
			return fmt.Errorf("swap on %s reservation: %w", rv.State, reservation.ErrInvalidTransition)
		}
		oldQty := rv.Quantity
		if err := c.ledger.Transfer(ctx, rv.LotID, oldQty, newLotID, newQty); err != nil {
			return err
		}
		successor = &reservation.Reservation{
			ID:        uuid.New(),
			CaseID:    rv.CaseID,
			ProductID: rv.ProductID,
			LotID:     newLotID,
			Quantity:  newQty,
			State:     reservation.StateReserved,
			CreatedBy: actor,
		}
		if err := c.reservations.Create(ctx, successor); err != nil {
			if rerr := c.ledger.Transfer(ctx, newLotID, newQty, rv.LotID, oldQty); rerr != nil {
				c.logger.Error().Err(rerr).Msg("rollback after swap create failure")
			}
			return err
		}
		if err := rv.Supersede(reason, successor.ID); err != nil {
			return err
		}
		return c.reservations.Update(ctx, rv)
	})
	if err != nil {
		return nil, err
	}

	c.refreshReadiness(ctx, rv.CaseID)
	return successor, nil
}

// Steal moves part or all of another case's claim to a target case. The
// lot's committed stock never moves; only ownership does. The donor case is
// re-evaluated and notified.
func (c *Coordinator) Steal(ctx context.Context, sourceReservationID, targetCaseID uuid.UUID, qty int, reason, actor string) (*reservation.Reservation, error) {
	if reason == "" {
		return nil, reservation.ErrReasonRequired
	}
	if qty <= 0 {
		return nil, fmt.Errorf("steal quantity must be positive: %w", reservation.ErrInvalidTransition)
	}
	if _, err := c.cases.GetByID(ctx, targetCaseID); err != nil {
		return nil, err
	}
	src, err := c.reservations.GetByID(ctx, sourceReservationID)
	if err != nil {
		return nil, err
	}
	if src.CaseID == targetCaseID {
		return nil, fmt.Errorf("steal within the same case: %w", reservation.ErrInvalidTransition)
	}

	unlock := c.locker.Lock(src.LotID)
	defer unlock()

	var stolen *reservation.Reservation
	err = c.runTx(ctx, func(ctx context.Context) error {
		src, err = c.reservations.GetByID(ctx, sourceReservationID)
		if err != nil {
			return err
		}
		if !src.Active() {
			return fmt.Errorf("steal from %s reservation: %w", src.State, reservation.ErrInvalidTransition)
		}
		if qty > src.Quantity {
			return fmt.Errorf("steal %d exceeds reserved %d: %w", qty, src.Quantity, reservation.ErrOverConsumption)
		}

		stolen = &reservation.Reservation{
			ID:        uuid.New(),
			CaseID:    targetCaseID,
			ProductID: src.ProductID,
			LotID:     src.LotID,
			Quantity:  qty,
			State:     reservation.StateReserved,
			CreatedBy: actor,
		}
		if err := c.reservations.Create(ctx, stolen); err != nil {
			return err
		}
		if qty == src.Quantity {
			if err := src.Supersede(reason, stolen.ID); err != nil {
				return err
			}
		} else {
			if err := src.Split(qty); err != nil {
				return err
			}
		}
		return c.reservations.Update(ctx, src)
	})
	if err != nil {
		return nil, err
	}

	if serr := c.sink.Publish(ctx, notify.ReservationStolen{
		SourceCaseID:        src.CaseID,
		TargetCaseID:        targetCaseID,
		LotID:               src.LotID,
		SourceReservationID: src.ID,
		NewReservationID:    stolen.ID,
		Quantity:            qty,
		Reason:              reason,
		At:                  time.Now(),
	}); serr != nil {
		c.logger.Warn().Err(serr).Msg("publish reservation.stolen")
	}
	c.refreshReadiness(ctx, src.CaseID)
	c.refreshReadiness(ctx, targetCaseID)
	return stolen, nil
}

// UseUnreserved records walk-in consumption straight off the shelf: no
// reservation is created or touched, only available stock is drawn, and both
// evidence and a reason are mandatory.
func (c *Coordinator) UseUnreserved(ctx context.Context, caseID, lotID uuid.UUID, qty int, evidenceRef, reason, actor string) (*reservation.MaterialUsageRecord, error) {
	if evidenceRef == "" {
		return nil, reservation.ErrEvidenceRequired
	}
	if reason == "" {
		return nil, reservation.ErrReasonRequired
	}
	if _, err := c.cases.GetByID(ctx, caseID); err != nil {
		return nil, err
	}
	lot, err := c.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	unlock := c.locker.Lock(lotID)
	defer unlock()

	usage := &reservation.MaterialUsageRecord{
		CaseID:       caseID,
		ProductID:    lot.ProductID,
		LotID:        lotID,
		QuantityUsed: qty,
		EvidenceRef:  evidenceRef,
		Reason:       &reason,
		RecordedBy:   actor,
	}
	err = c.runTx(ctx, func(ctx context.Context) error {
		if err := c.ledger.ConsumeAvailable(ctx, lotID, qty); err != nil {
			return err
		}
		return c.usages.Append(ctx, usage)
	})
	if err != nil {
		return nil, err
	}

	c.refreshReadiness(ctx, caseID)
	return usage, nil
}

// Readiness evaluates a case on demand without persisting anything.
func (c *Coordinator) Readiness(ctx context.Context, caseID uuid.UUID) (*CaseReadiness, error) {
	if _, err := c.cases.GetByID(ctx, caseID); err != nil {
		return nil, err
	}
	return c.evaluator.Evaluate(ctx, caseID)
}

// refreshReadiness re-evaluates a case after a mutating operation, persists a
// changed verdict and emits readiness.changed. Failures here are logged, not
// surfaced: the ledger operation itself already succeeded.
func (c *Coordinator) refreshReadiness(ctx context.Context, caseID uuid.UUID) {
	cc, err := c.cases.GetByID(ctx, caseID)
	if err != nil {
		c.logger.Error().Err(err).Str("case_id", caseID.String()).Msg("readiness refresh: load case")
		return
	}
	cr, err := c.evaluator.Evaluate(ctx, caseID)
	if err != nil {
		c.logger.Error().Err(err).Str("case_id", caseID.String()).Msg("readiness refresh: evaluate")
		return
	}
	if cr.Overall == cc.Readiness {
		return
	}
	if err := c.cases.UpdateReadiness(ctx, caseID, cr.Overall); err != nil {
		c.logger.Error().Err(err).Str("case_id", caseID.String()).Msg("readiness refresh: persist")
		return
	}
	if err := c.sink.Publish(ctx, notify.ReadinessChanged{
		CaseID:   caseID,
		Previous: cc.Readiness,
		Current:  cr.Overall,
		At:       time.Now(),
	}); err != nil {
		c.logger.Warn().Err(err).Str("case_id", caseID.String()).Msg("publish readiness.changed")
	}
}
