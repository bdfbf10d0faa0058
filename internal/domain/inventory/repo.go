package inventory

import (
	"context"

	"github.com/google/uuid"
)

// LotRepository is the persistence boundary for stock lots. Quantity writes go
// through UpdateQuantities so a row update always carries both counters.
type LotRepository interface {
	Create(ctx context.Context, l *StockLot) error
	GetByID(ctx context.Context, id uuid.UUID) (*StockLot, error)
	UpdateQuantities(ctx context.Context, l *StockLot) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*StockLot, error)
	List(ctx context.Context, limit, offset int) ([]*StockLot, int, error)
}
