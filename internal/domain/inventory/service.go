package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kpcrmv4/dentalos-sub000/internal/domain/catalog"
)

type Service struct {
	lots     LotRepository
	products catalog.ProductRepository
}

func NewService(lots LotRepository, products catalog.ProductRepository) *Service {
	return &Service{lots: lots, products: products}
}

// ReceiveLot records a goods receipt as a new lot. Products flagged as
// expiry-tracked must carry an expiry date; for others the date is optional.
func (s *Service) ReceiveLot(ctx context.Context, l *StockLot) error {
	if l.ProductID == uuid.Nil {
		return fmt.Errorf("product_id is required")
	}
	if l.LotCode == "" {
		return fmt.Errorf("lot_code is required")
	}
	if l.OnHandQty <= 0 {
		return fmt.Errorf("on_hand_qty must be positive")
	}
	if l.ReceivedBy == "" {
		return fmt.Errorf("received_by is required")
	}
	p, err := s.products.GetByID(ctx, l.ProductID)
	if err != nil {
		return fmt.Errorf("product %s: %w", l.ProductID, err)
	}
	if p.TracksExpiry && l.ExpiryDate == nil {
		return fmt.Errorf("expiry_date is required for product %s", p.Code)
	}
	l.CommittedQty = 0
	if l.Status == "" {
		l.Status = LotStatusActive
	}
	if !validLotStatuses[l.Status] {
		return fmt.Errorf("invalid status: %s", l.Status)
	}
	return s.lots.Create(ctx, l)
}

func (s *Service) GetLot(ctx context.Context, id uuid.UUID) (*StockLot, error) {
	return s.lots.GetByID(ctx, id)
}

func (s *Service) ListLots(ctx context.Context, limit, offset int) ([]*StockLot, int, error) {
	return s.lots.List(ctx, limit, offset)
}

func (s *Service) ListLotsByProduct(ctx context.Context, productID uuid.UUID) ([]*StockLot, error) {
	return s.lots.ListByProduct(ctx, productID)
}

// BlockLot takes a lot out of circulation (recall, damage). Committed stock
// stays committed; the lot just stops feeding new proposals.
func (s *Service) BlockLot(ctx context.Context, id uuid.UUID) error {
	if _, err := s.lots.GetByID(ctx, id); err != nil {
		return err
	}
	return s.lots.UpdateStatus(ctx, id, LotStatusBlocked)
}

// UnblockLot returns a blocked lot to active circulation.
func (s *Service) UnblockLot(ctx context.Context, id uuid.UUID) error {
	l, err := s.lots.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if l.Status != LotStatusBlocked {
		return fmt.Errorf("lot %s is %s, not blocked", l.LotCode, l.Status)
	}
	status := LotStatusActive
	if l.OnHandQty == 0 {
		status = LotStatusDepleted
	}
	return s.lots.UpdateStatus(ctx, id, status)
}
