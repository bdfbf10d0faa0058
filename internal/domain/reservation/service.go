package reservation

import (
	"context"

	"github.com/google/uuid"
)

// Service exposes read access to the reservation ledger. All writes go
// through the allocation coordinator, which owns the cross-ledger atomicity.
type Service struct {
	reservations ReservationRepository
	usages       UsageRepository
}

func NewService(reservations ReservationRepository, usages UsageRepository) *Service {
	return &Service{reservations: reservations, usages: usages}
}

func (s *Service) GetReservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

func (s *Service) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Reservation, error) {
	return s.reservations.ListByCase(ctx, caseID)
}

func (s *Service) ListActiveByLot(ctx context.Context, lotID uuid.UUID) ([]*Reservation, error) {
	return s.reservations.ListActiveByLot(ctx, lotID)
}

func (s *Service) ListUsagesByCase(ctx context.Context, caseID uuid.UUID) ([]*MaterialUsageRecord, error) {
	return s.usages.ListByCase(ctx, caseID)
}
