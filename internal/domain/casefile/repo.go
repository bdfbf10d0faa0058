package casefile

import (
	"context"

	"github.com/google/uuid"
)

type CaseRepository interface {
	Create(ctx context.Context, cc *ClinicalCase) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClinicalCase, error)
	Update(ctx context.Context, cc *ClinicalCase) error
	UpdateReadiness(ctx context.Context, id uuid.UUID, readiness string) error
	List(ctx context.Context, limit, offset int) ([]*ClinicalCase, int, error)
}

type NeedRepository interface {
	Add(ctx context.Context, n *MaterialNeed) error
	GetByID(ctx context.Context, id uuid.UUID) (*MaterialNeed, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*MaterialNeed, error)
	Remove(ctx context.Context, id uuid.UUID) error
}
