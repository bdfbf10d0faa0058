package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type mockLotRepo struct {
	mu   sync.Mutex
	lots map[uuid.UUID]*StockLot
}

func newMockLotRepo() *mockLotRepo {
	return &mockLotRepo{lots: make(map[uuid.UUID]*StockLot)}
}

func (m *mockLotRepo) Create(_ context.Context, l *StockLot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	cp := *l
	m.lots[l.ID] = &cp
	return nil
}

func (m *mockLotRepo) GetByID(_ context.Context, id uuid.UUID) (*StockLot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lots[id]
	if !ok {
		return nil, ErrLotNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *mockLotRepo) UpdateQuantities(_ context.Context, l *StockLot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.lots[l.ID]
	if !ok {
		return ErrLotNotFound
	}
	cur.OnHandQty = l.OnHandQty
	cur.CommittedQty = l.CommittedQty
	cur.Status = l.Status
	return nil
}

func (m *mockLotRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lots[id]
	if !ok {
		return ErrLotNotFound
	}
	l.Status = status
	return nil
}

func (m *mockLotRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]*StockLot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*StockLot
	for _, l := range m.lots {
		if l.ProductID == productID {
			cp := *l
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *mockLotRepo) List(_ context.Context, limit, offset int) ([]*StockLot, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*StockLot
	for _, l := range m.lots {
		cp := *l
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func datePtr(y int, mo time.Month, d int) *time.Time {
	t := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func seedLot(repo *mockLotRepo, productID uuid.UUID, code string, expiry *time.Time, onHand, committed int) *StockLot {
	l := &StockLot{
		ID:           uuid.New(),
		ProductID:    productID,
		LotCode:      code,
		ExpiryDate:   expiry,
		OnHandQty:    onHand,
		CommittedQty: committed,
		Status:       LotStatusActive,
	}
	repo.lots[l.ID] = l
	return l
}
