package casefile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	cases CaseRepository
	needs NeedRepository
}

func NewService(cases CaseRepository, needs NeedRepository) *Service {
	return &Service{cases: cases, needs: needs}
}

func (s *Service) CreateCase(ctx context.Context, cc *ClinicalCase) error {
	if cc.PatientRef == "" {
		return fmt.Errorf("patient_ref is required")
	}
	if cc.Title == "" {
		return fmt.Errorf("title is required")
	}
	if cc.Status == "" {
		cc.Status = CaseStatusPlanned
	}
	if !validCaseStatuses[cc.Status] {
		return fmt.Errorf("invalid status: %s", cc.Status)
	}
	// A new case has no reservations yet.
	cc.Readiness = ReadinessNone
	return s.cases.Create(ctx, cc)
}

func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*ClinicalCase, error) {
	return s.cases.GetByID(ctx, id)
}

func (s *Service) UpdateCase(ctx context.Context, cc *ClinicalCase) error {
	if cc.Status != "" && !validCaseStatuses[cc.Status] {
		return fmt.Errorf("invalid status: %s", cc.Status)
	}
	return s.cases.Update(ctx, cc)
}

func (s *Service) ListCases(ctx context.Context, limit, offset int) ([]*ClinicalCase, int, error) {
	return s.cases.List(ctx, limit, offset)
}

// -- Material Needs --

func (s *Service) AddNeed(ctx context.Context, n *MaterialNeed) error {
	if n.CaseID == uuid.Nil {
		return fmt.Errorf("case_id is required")
	}
	if n.ProductID == uuid.Nil {
		return fmt.Errorf("product_id is required")
	}
	if n.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if _, err := s.cases.GetByID(ctx, n.CaseID); err != nil {
		return err
	}
	return s.needs.Add(ctx, n)
}

func (s *Service) ListNeeds(ctx context.Context, caseID uuid.UUID) ([]*MaterialNeed, error) {
	return s.needs.ListByCase(ctx, caseID)
}

func (s *Service) RemoveNeed(ctx context.Context, id uuid.UUID) error {
	return s.needs.Remove(ctx, id)
}
