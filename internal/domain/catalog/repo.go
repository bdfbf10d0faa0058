package catalog

import (
	"context"

	"github.com/google/uuid"
)

type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetByCode(ctx context.Context, code string) (*Product, error)
	Update(ctx context.Context, p *Product) error
	List(ctx context.Context, limit, offset int) ([]*Product, int, error)
}
