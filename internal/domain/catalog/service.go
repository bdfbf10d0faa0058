package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	products ProductRepository
}

func NewService(products ProductRepository) *Service {
	return &Service{products: products}
}

func (s *Service) CreateProduct(ctx context.Context, p *Product) error {
	if p.Code == "" {
		return fmt.Errorf("code is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Category == "" {
		p.Category = "consumable"
	}
	if !validCategories[p.Category] {
		return fmt.Errorf("invalid category: %s", p.Category)
	}
	if p.Unit == "" {
		p.Unit = "each"
	}
	p.IsActive = true
	return s.products.Create(ctx, p)
}

func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

func (s *Service) GetProductByCode(ctx context.Context, code string) (*Product, error) {
	return s.products.GetByCode(ctx, code)
}

func (s *Service) UpdateProduct(ctx context.Context, p *Product) error {
	if p.Category != "" && !validCategories[p.Category] {
		return fmt.Errorf("invalid category: %s", p.Category)
	}
	return s.products.Update(ctx, p)
}

// DeactivateProduct retires a product from ordering without touching its lots.
func (s *Service) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	p.IsActive = false
	return s.products.Update(ctx, p)
}

func (s *Service) ListProducts(ctx context.Context, limit, offset int) ([]*Product, int, error) {
	return s.products.List(ctx, limit, offset)
}
