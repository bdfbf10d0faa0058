package reservation

import (
	"context"

	"github.com/google/uuid"
)

type ReservationRepository interface {
	Create(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	Update(ctx context.Context, r *Reservation) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Reservation, error)
	ListActiveByLot(ctx context.Context, lotID uuid.UUID) ([]*Reservation, error)
}

// UsageRepository is append-only: records are never updated or deleted.
type UsageRepository interface {
	Append(ctx context.Context, u *MaterialUsageRecord) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*MaterialUsageRecord, error)
}
