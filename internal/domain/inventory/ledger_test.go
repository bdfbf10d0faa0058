package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestCommit_ClaimsAvailableStock(t *testing.T) {
	repo := newMockLotRepo()
	product := uuid.New()
	lot := seedLot(repo, product, "L-001", datePtr(2027, 1, 1), 10, 3)
	ledger := NewLedger(repo)

	if err := ledger.Commit(context.Background(), lot.ID, 5); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), lot.ID)
	if got.CommittedQty != 8 || got.OnHandQty != 10 {
		t.Errorf("got committed=%d on_hand=%d, want 8/10", got.CommittedQty, got.OnHandQty)
	}
}

func TestCommit_RefusesOverCommit(t *testing.T) {
	repo := newMockLotRepo()
	lot := seedLot(repo, uuid.New(), "L-001", nil, 10, 8)
	ledger := NewLedger(repo)

	err := ledger.Commit(context.Background(), lot.ID, 3)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	var ise *InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatal("expected InsufficientStockError detail")
	}
	if ise.Requested != 3 || ise.Available != 2 {
		t.Errorf("got requested=%d available=%d, want 3/2", ise.Requested, ise.Available)
	}
	got, _ := repo.GetByID(context.Background(), lot.ID)
	if got.CommittedQty != 8 {
		t.Errorf("refused commit must not change the lot, committed=%d", got.CommittedQty)
	}
}

func TestCommit_RefusesInactiveLot(t *testing.T) {
	repo := newMockLotRepo()
	lot := seedLot(repo, uuid.New(), "L-001", nil, 10, 0)
	lot.Status = LotStatusBlocked
	ledger := NewLedger(repo)

	if err := ledger.Commit(context.Background(), lot.ID, 1); !errors.Is(err, ErrLotNotActive) {
		t.Fatalf("expected ErrLotNotActive, got %v", err)
	}
}

func TestRelease_RestoresAvailability(t *testing.T) {
	repo := newMockLotRepo()
	lot := seedLot(repo, uuid.New(), "L-001", nil, 10, 6)
	ledger := NewLedger(repo)

	if err := ledger.Release(context.Background(), lot.ID, 4); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), lot.ID)
	if got.CommittedQty != 2 || got.Available() != 8 {
		t.Errorf("got committed=%d available=%d, want 2/8", got.CommittedQty, got.Available())
	}
}

func TestRelease_RefusesNegativeCommitted(t *testing.T) {
	repo := newMockLotRepo()
	lot := seedLot(repo, uuid.New(), "L-001", nil, 10, 2)
	ledger := NewLedger(repo)

	if err := ledger.Release(context.Background(), lot.ID, 3); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
	got, _ := repo.GetByID(context.Background(), lot.ID)
	if got.CommittedQty != 2 {
		t.Errorf("refused release must not change the lot, committed=%d", got.CommittedQty)
	}
}

func TestConsume_DecrementsBothCounters(t *testing.T) {
	repo := newMockLotRepo()
	lot := seedLot(repo, uuid.New(), "L-001", nil, 10, 6)
	ledger := NewLedger(repo)

	if err := ledger.Consume(context.Background(), lot.ID, 4); err != nil {
		t.Fatalf("consume: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), lot.ID)
	if got.OnHandQty != 6 || got.CommittedQty != 2 {
		t.Errorf("got on_hand=%d committed=%d, want 6/2", got.OnHandQty, got.CommittedQty)
	}
	if got.Available() != 4 {
		t.Errorf("consume must not change availability, available=%d", got.Available())
	}
}

func TestConsume_DepletesDrainedLot(t *testing.T) {
	repo := newMockLotRepo()
	lot := seedLot(repo, uuid.New(), "L-001", nil, 5, 5)
	ledger := NewLedger(repo)

	if err := ledger.Consume(context.Background(), lot.ID, 5); err != nil {
		t.Fatalf("consume: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), lot.ID)
	if got.Status != LotStatusDepleted {
		t.Errorf("got status %s, want depleted", got.Status)
	}
}

func TestConsume_RefusesBeyondCommitted(t *testing.T) {
	repo := newMockLotRepo()
	lot := seedLot(repo, uuid.New(), "L-001", nil, 10, 2)
	ledger := NewLedger(repo)

	if err := ledger.Consume(context.Background(), lot.ID, 3); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
}

func TestConsumeAvailable_LeavesCommitmentsAlone(t *testing.T) {
	repo := newMockLotRepo()
	lot := seedLot(repo, uuid.New(), "L-001", nil, 10, 6)
	ledger := NewLedger(repo)

	if err := ledger.ConsumeAvailable(context.Background(), lot.ID, 4); err != nil {
		t.Fatalf("consume available: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), lot.ID)
	if got.OnHandQty != 6 || got.CommittedQty != 6 {
		t.Errorf("got on_hand=%d committed=%d, want 6/6", got.OnHandQty, got.CommittedQty)
	}

	// Only 0 available now; another walk-in draw must fail.
	if err := ledger.ConsumeAvailable(context.Background(), lot.ID, 1); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestCommitPlan_AllOrNothing(t *testing.T) {
	repo := newMockLotRepo()
	product := uuid.New()
	l1 := seedLot(repo, product, "L-001", datePtr(2026, 10, 1), 5, 0)
	l2 := seedLot(repo, product, "L-002", datePtr(2026, 11, 1), 5, 5) // nothing available
	ledger := NewLedger(repo)

	plan := &Plan{ProductID: product, Lines: []PlanLine{
		{LotID: l1.ID, LotCode: "L-001", Quantity: 5},
		{LotID: l2.ID, LotCode: "L-002", Quantity: 2},
	}}
	err := ledger.CommitPlan(context.Background(), plan)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// First line must have been rolled back.
	got, _ := repo.GetByID(context.Background(), l1.ID)
	if got.CommittedQty != 0 {
		t.Errorf("stale plan left a partial claim: committed=%d", got.CommittedQty)
	}
}

func TestTransfer_SameLotCountsReleaseFirst(t *testing.T) {
	repo := newMockLotRepo()
	lot := seedLot(repo, uuid.New(), "L-001", nil, 10, 10) // fully committed
	ledger := NewLedger(repo)

	// 0 available, but releasing 4 within the same step makes room for 3.
	if err := ledger.Transfer(context.Background(), lot.ID, 4, lot.ID, 3); err != nil {
		t.Fatalf("same-lot transfer: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), lot.ID)
	if got.CommittedQty != 9 {
		t.Errorf("got committed=%d, want 9", got.CommittedQty)
	}
}

func TestTransfer_RollsBackCommitWhenReleaseFails(t *testing.T) {
	repo := newMockLotRepo()
	product := uuid.New()
	from := seedLot(repo, product, "L-001", nil, 10, 1)
	to := seedLot(repo, product, "L-002", nil, 10, 0)
	ledger := NewLedger(repo)

	err := ledger.Transfer(context.Background(), from.ID, 5, to.ID, 5)
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
	gotTo, _ := repo.GetByID(context.Background(), to.ID)
	if gotTo.CommittedQty != 0 {
		t.Errorf("failed transfer left a claim on target lot: committed=%d", gotTo.CommittedQty)
	}
}
