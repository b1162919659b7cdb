package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/examportal/backend/internal/model"
	"github.com/examportal/backend/internal/repository"
)

// OrganizationService handles organization lifecycle and code issuance.
type OrganizationService struct {
	orgRepo *repository.OrganizationRepository
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(orgRepo *repository.OrganizationRepository) *OrganizationService {
	return &OrganizationService{orgRepo: orgRepo}
}

// Create makes a new organization with a fresh join code. Code collisions
// are retried a few times before giving up.
func (s *OrganizationService) Create(ctx context.Context, req model.CreateOrganizationRequest) (*model.Organization, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := generateCode(orgCodeLength)
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		org := &model.Organization{Name: req.Name, Code: code}
		err = s.orgRepo.Create(ctx, org)
		if errors.Is(err, repository.ErrDuplicateOrgCode) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return org, nil
	}
	return nil, errors.New("could not allocate a unique organization code")
}

// Get retrieves an organization by ID.
func (s *OrganizationService) Get(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	return s.orgRepo.GetByID(ctx, id)
}

// List retrieves all organizations.
func (s *OrganizationService) List(ctx context.Context) ([]model.Organization, error) {
	return s.orgRepo.List(ctx)
}

// Update renames an organization.
func (s *OrganizationService) Update(ctx context.Context, id uuid.UUID, req model.UpdateOrganizationRequest) (*model.Organization, error) {
	org, err := s.orgRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	org.Name = req.Name
	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// Delete removes an organization and, by cascade, its students, exams and
// attempts.
func (s *OrganizationService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.orgRepo.Delete(ctx, id)
}
