package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/policy"
	"github.com/nurpe/haulops/internal/repository"
)

type SubcontractorService struct {
	subs       *repository.SubcontractorRepository
	companies  *repository.CompanyRepository
	drivers    *repository.DriverRepository
	vehicles   *repository.VehicleRepository
	operations *repository.OperationRepository
}

func NewSubcontractorService(
	subs *repository.SubcontractorRepository,
	companies *repository.CompanyRepository,
	drivers *repository.DriverRepository,
	vehicles *repository.VehicleRepository,
	operations *repository.OperationRepository,
) *SubcontractorService {
	return &SubcontractorService{subs: subs, companies: companies, drivers: drivers, vehicles: vehicles, operations: operations}
}

func (s *SubcontractorService) List(ctx context.Context, p model.Principal) ([]model.Subcontractor, error) {
	if err := authorize(p, policy.ActionViewFleet); err != nil {
		return nil, err
	}
	return s.subs.List(ctx, p.Tenant())
}

func (s *SubcontractorService) Get(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Subcontractor, error) {
	if err := authorize(p, policy.ActionViewFleet); err != nil {
		return nil, err
	}
	sub, err := s.subs.Get(ctx, p.Tenant(), id)
	return sub, translate(err)
}

type SubcontractorInput struct {
	Name            string
	Email           string
	Phone           string
	LinkedCompanyID *uuid.UUID
}

// Create registers a subcontractor. Linking another company leaves the
// record PENDING until that company confirms.
func (s *SubcontractorService) Create(ctx context.Context, p model.Principal, input SubcontractorInput) (*model.Subcontractor, error) {
	if err := authorize(p, policy.ActionManageFleet); err != nil {
		return nil, err
	}
	name, err := requireText("name", input.Name)
	if err != nil {
		return nil, err
	}
	sub := &model.Subcontractor{
		TransportCompanyID: p.Tenant(),
		Name:               name,
		Phone:              input.Phone,
		Status:             model.LinkStatusActive,
	}
	if input.Email != "" {
		if sub.Email, err = validEmail(input.Email); err != nil {
			return nil, err
		}
	}
	if input.LinkedCompanyID != nil && *input.LinkedCompanyID != uuid.Nil {
		linked := *input.LinkedCompanyID
		if linked == p.Tenant() {
			return nil, invalidf("a company cannot subcontract to itself")
		}
		company, err := s.companies.GetByID(ctx, linked)
		if err != nil {
			return nil, translate(err)
		}
		if company.Type != model.CompanyTypeTransport {
			return nil, invalidf("linked company must be a transport company")
		}
		sub.LinkedCompanyID = &linked
		sub.Status = model.LinkStatusPending
	}

	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, translate(err)
	}
	return sub, nil
}

type UpdateSubcontractorInput struct {
	Name  *string
	Email *string
	Phone *string
}

func (s *SubcontractorService) Update(ctx context.Context, p model.Principal, id uuid.UUID, input UpdateSubcontractorInput) (*model.Subcontractor, error) {
	if err := authorize(p, policy.ActionManageFleet); err != nil {
		return nil, err
	}
	sub, err := s.subs.Get(ctx, p.Tenant(), id)
	if err != nil {
		return nil, translate(err)
	}
	if input.Name != nil {
		if sub.Name, err = requireText("name", *input.Name); err != nil {
			return nil, err
		}
	}
	if input.Email != nil {
		sub.Email = ""
		if *input.Email != "" {
			if sub.Email, err = validEmail(*input.Email); err != nil {
				return nil, err
			}
		}
	}
	applyText(&sub.Phone, input.Phone)

	if err := s.subs.Save(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Delete refuses while operations, drivers or vehicles still point at the record.
func (s *SubcontractorService) Delete(ctx context.Context, p model.Principal, id uuid.UUID) error {
	if err := authorize(p, policy.ActionManageFleet); err != nil {
		return err
	}
	if _, err := s.subs.Get(ctx, p.Tenant(), id); err != nil {
		return translate(err)
	}

	ops, err := s.operations.CountReferencing(ctx, repository.RefSubcontractor, id)
	if err != nil {
		return err
	}
	if ops > 0 {
		return conflictf("subcontractor is referenced by %d operations", ops)
	}
	drivers, err := s.drivers.CountOwnedBySubcontractor(ctx, id)
	if err != nil {
		return err
	}
	vehicles, err := s.vehicles.CountOwnedBySubcontractor(ctx, id)
	if err != nil {
		return err
	}
	if drivers+vehicles > 0 {
		return conflictf("subcontractor still owns %d drivers and %d vehicles", drivers, vehicles)
	}
	return translate(s.subs.Delete(ctx, id))
}

// Requests lists pending links that name the caller's company.
func (s *SubcontractorService) Requests(ctx context.Context, p model.Principal) ([]model.Subcontractor, error) {
	if err := authorize(p, policy.ActionManagePartners); err != nil {
		return nil, err
	}
	return s.subs.ListLinkRequests(ctx, p.Tenant())
}

func (s *SubcontractorService) Confirm(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Subcontractor, error) {
	if err := authorize(p, policy.ActionManagePartners); err != nil {
		return nil, err
	}
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if sub.LinkedCompanyID == nil || *sub.LinkedCompanyID != p.Tenant() {
		return nil, ErrNotFound
	}
	if sub.Status == model.LinkStatusActive {
		return nil, conflictf("subcontractor link already active")
	}
	if err := s.subs.Activate(ctx, id, p.Tenant()); err != nil {
		return nil, translate(err)
	}
	sub.Status = model.LinkStatusActive
	return sub, nil
}
