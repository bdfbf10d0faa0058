package allocation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kpcrmv4/dentalos-sub000/internal/domain/casefile"
	"github.com/kpcrmv4/dentalos-sub000/internal/domain/inventory"
	"github.com/kpcrmv4/dentalos-sub000/internal/domain/reservation"
	"github.com/kpcrmv4/dentalos-sub000/internal/platform/notify"
)

// -- In-memory repositories --

type memLotRepo struct {
	mu   sync.Mutex
	lots map[uuid.UUID]*inventory.StockLot
}

func newMemLotRepo() *memLotRepo {
	return &memLotRepo{lots: make(map[uuid.UUID]*inventory.StockLot)}
}

func (m *memLotRepo) Create(_ context.Context, l *inventory.StockLot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	cp := *l
	m.lots[l.ID] = &cp
	return nil
}

func (m *memLotRepo) GetByID(_ context.Context, id uuid.UUID) (*inventory.StockLot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lots[id]
	if !ok {
		return nil, inventory.ErrLotNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memLotRepo) UpdateQuantities(_ context.Context, l *inventory.StockLot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.lots[l.ID]
	if !ok {
		return inventory.ErrLotNotFound
	}
	cur.OnHandQty = l.OnHandQty
	cur.CommittedQty = l.CommittedQty
	cur.Status = l.Status
	return nil
}

func (m *memLotRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lots[id]
	if !ok {
		return inventory.ErrLotNotFound
	}
	l.Status = status
	return nil
}

func (m *memLotRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]*inventory.StockLot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*inventory.StockLot
	for _, l := range m.lots {
		if l.ProductID == productID {
			cp := *l
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *memLotRepo) List(_ context.Context, limit, offset int) ([]*inventory.StockLot, int, error) {
	return nil, 0, nil
}

type memReservationRepo struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*reservation.Reservation
}

func newMemReservationRepo() *memReservationRepo {
	return &memReservationRepo{reservations: make(map[uuid.UUID]*reservation.Reservation)}
}

func (m *memReservationRepo) Create(_ context.Context, r *reservation.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = time.Now()
	cp := *r
	m.reservations[r.ID] = &cp
	return nil
}

func (m *memReservationRepo) GetByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memReservationRepo) Update(_ context.Context, r *reservation.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[r.ID]; !ok {
		return reservation.ErrReservationNotFound
	}
	cp := *r
	m.reservations[r.ID] = &cp
	return nil
}

func (m *memReservationRepo) ListByCase(_ context.Context, caseID uuid.UUID) ([]*reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*reservation.Reservation
	for _, r := range m.reservations {
		if r.CaseID == caseID {
			cp := *r
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *memReservationRepo) ListActiveByLot(_ context.Context, lotID uuid.UUID) ([]*reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*reservation.Reservation
	for _, r := range m.reservations {
		if r.LotID == lotID && r.Active() {
			cp := *r
			items = append(items, &cp)
		}
	}
	return items, nil
}

type memUsageRepo struct {
	mu      sync.Mutex
	records []*reservation.MaterialUsageRecord
}

func newMemUsageRepo() *memUsageRepo { return &memUsageRepo{} }

func (m *memUsageRepo) Append(_ context.Context, u *reservation.MaterialUsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.RecordedAt = time.Now()
	cp := *u
	m.records = append(m.records, &cp)
	return nil
}

func (m *memUsageRepo) ListByCase(_ context.Context, caseID uuid.UUID) ([]*reservation.MaterialUsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*reservation.MaterialUsageRecord
	for _, u := range m.records {
		if u.CaseID == caseID {
			cp := *u
			items = append(items, &cp)
		}
	}
	return items, nil
}

type memCaseRepo struct {
	mu    sync.Mutex
	cases map[uuid.UUID]*casefile.ClinicalCase
}

func newMemCaseRepo() *memCaseRepo {
	return &memCaseRepo{cases: make(map[uuid.UUID]*casefile.ClinicalCase)}
}

func (m *memCaseRepo) Create(_ context.Context, cc *casefile.ClinicalCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cc.ID == uuid.Nil {
		cc.ID = uuid.New()
	}
	cp := *cc
	m.cases[cc.ID] = &cp
	return nil
}

func (m *memCaseRepo) GetByID(_ context.Context, id uuid.UUID) (*casefile.ClinicalCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cc, ok := m.cases[id]
	if !ok {
		return nil, casefile.ErrCaseNotFound
	}
	cp := *cc
	return &cp, nil
}

func (m *memCaseRepo) Update(_ context.Context, cc *casefile.ClinicalCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[cc.ID]; !ok {
		return casefile.ErrCaseNotFound
	}
	cp := *cc
	m.cases[cc.ID] = &cp
	return nil
}

func (m *memCaseRepo) UpdateReadiness(_ context.Context, id uuid.UUID, readiness string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cc, ok := m.cases[id]
	if !ok {
		return casefile.ErrCaseNotFound
	}
	cc.Readiness = readiness
	return nil
}

func (m *memCaseRepo) List(_ context.Context, limit, offset int) ([]*casefile.ClinicalCase, int, error) {
	return nil, 0, nil
}

type memNeedRepo struct {
	mu    sync.Mutex
	needs map[uuid.UUID]*casefile.MaterialNeed
}

func newMemNeedRepo() *memNeedRepo {
	return &memNeedRepo{needs: make(map[uuid.UUID]*casefile.MaterialNeed)}
}

func (m *memNeedRepo) Add(_ context.Context, n *casefile.MaterialNeed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	cp := *n
	m.needs[n.ID] = &cp
	return nil
}

func (m *memNeedRepo) GetByID(_ context.Context, id uuid.UUID) (*casefile.MaterialNeed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.needs[id]
	if !ok {
		return nil, casefile.ErrNeedNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *memNeedRepo) ListByCase(_ context.Context, caseID uuid.UUID) ([]*casefile.MaterialNeed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*casefile.MaterialNeed
	for _, n := range m.needs {
		if n.CaseID == caseID {
			cp := *n
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *memNeedRepo) Remove(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.needs, id)
	return nil
}

// -- Test rig --

type rig struct {
	lots         *memLotRepo
	reservations *memReservationRepo
	usages       *memUsageRepo
	cases        *memCaseRepo
	needs        *memNeedRepo
	selector     *inventory.Selector
	ledger       *inventory.Ledger
	evaluator    *Evaluator
	sink         *notify.MemorySink
	coord        *Coordinator
}

func newRig() *rig {
	r := &rig{
		lots:         newMemLotRepo(),
		reservations: newMemReservationRepo(),
		usages:       newMemUsageRepo(),
		cases:        newMemCaseRepo(),
		needs:        newMemNeedRepo(),
		sink:         notify.NewMemorySink(),
	}
	r.selector = inventory.NewSelector(r.lots)
	r.ledger = inventory.NewLedger(r.lots)
	r.evaluator = NewEvaluator(r.needs, r.reservations, r.usages, r.selector)
	r.coord = NewCoordinator(Deps{
		Locker:       inventory.NewLotLocker(),
		Ledger:       r.ledger,
		Selector:     r.selector,
		Lots:         r.lots,
		Reservations: r.reservations,
		Usages:       r.usages,
		Cases:        r.cases,
		Evaluator:    r.evaluator,
		Sink:         r.sink,
		Logger:       zerolog.Nop(),
	})
	return r
}

func (r *rig) addCase() uuid.UUID {
	cc := &casefile.ClinicalCase{
		PatientRef: "P-1001",
		Title:      "Implant placement",
		Status:     casefile.CaseStatusPlanned,
		Readiness:  casefile.ReadinessNone,
	}
	_ = r.cases.Create(context.Background(), cc)
	return cc.ID
}

func (r *rig) addNeed(caseID, productID uuid.UUID, qty int) {
	_ = r.needs.Add(context.Background(), &casefile.MaterialNeed{CaseID: caseID, ProductID: productID, Quantity: qty})
}

func (r *rig) addLot(productID uuid.UUID, code string, expiry *time.Time, onHand int) uuid.UUID {
	l := &inventory.StockLot{
		ProductID:  productID,
		LotCode:    code,
		ExpiryDate: expiry,
		OnHandQty:  onHand,
		Status:     inventory.LotStatusActive,
	}
	_ = r.lots.Create(context.Background(), l)
	return l.ID
}

func expiry(y int, mo time.Month, d int) *time.Time {
	t := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	return &t
}
