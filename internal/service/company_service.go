package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/policy"
	"github.com/nurpe/haulops/internal/repository"
)

type CompanyService struct {
	companies  *repository.CompanyRepository
	operations *repository.OperationRepository
	log        zerolog.Logger
	now        func() time.Time
}

func NewCompanyService(
	companies *repository.CompanyRepository,
	operations *repository.OperationRepository,
	log zerolog.Logger,
) *CompanyService {
	return &CompanyService{companies: companies, operations: operations, log: log, now: time.Now}
}

func (s *CompanyService) List(ctx context.Context, p model.Principal, companyType *model.CompanyType) ([]model.Company, error) {
	if err := authorize(p, policy.ActionListCompanies); err != nil {
		return nil, err
	}
	if companyType != nil && !companyType.Valid() {
		return nil, invalidf("invalid company type")
	}
	return s.companies.List(ctx, companyType)
}

func (s *CompanyService) GetOwn(ctx context.Context, p model.Principal) (*model.Company, error) {
	if !p.HasCompany() {
		return nil, ErrNotFound
	}
	company, err := s.companies.GetByID(ctx, p.Tenant())
	return company, translate(err)
}

type UpdateCompanyInput struct {
	Name               *string
	Email              *string
	Phone              *string
	Address            *string
	RegistrationNumber *string
}

func (s *CompanyService) UpdateOwn(ctx context.Context, p model.Principal, input UpdateCompanyInput) (*model.Company, error) {
	if err := authorize(p, policy.ActionManageCompany); err != nil {
		return nil, err
	}
	company, err := s.companies.GetByID(ctx, p.Tenant())
	if err != nil {
		return nil, translate(err)
	}
	if input.Name != nil {
		name, err := requireText("name", *input.Name)
		if err != nil {
			return nil, err
		}
		company.Name = name
	}
	if input.Email != nil && *input.Email != "" {
		email, err := validEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		company.Email = email
	}
	applyText(&company.Phone, input.Phone)
	applyText(&company.Address, input.Address)
	applyText(&company.RegistrationNumber, input.RegistrationNumber)

	if err := s.companies.Save(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

func (s *CompanyService) Validate(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Company, error) {
	if err := authorize(p, policy.ActionValidateCompany); err != nil {
		return nil, err
	}
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if company.IsValidated() {
		return company, nil
	}
	now := s.now().UTC()
	if err := s.companies.SetValidatedAt(ctx, id, now); err != nil {
		return nil, translate(err)
	}
	company.ValidatedAt = &now
	s.log.Info().Str("company_id", id.String()).Msg("company validated")
	return company, nil
}

// ExtendTrial pushes the trial end by days, counting from today when the
// trial has already expired.
func (s *CompanyService) ExtendTrial(ctx context.Context, p model.Principal, id uuid.UUID, days int) (*model.Company, error) {
	if err := authorize(p, policy.ActionExtendTrial); err != nil {
		return nil, err
	}
	if days <= 0 || days > 365 {
		return nil, invalidf("days must be between 1 and 365")
	}
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}

	base := s.now().UTC()
	if company.TrialEndsAt != nil && company.TrialEndsAt.After(base) {
		base = *company.TrialEndsAt
	}
	ends := base.AddDate(0, 0, days)
	if err := s.companies.SetTrialEndsAt(ctx, id, ends); err != nil {
		return nil, translate(err)
	}
	company.TrialEndsAt = &ends
	return company, nil
}

// Clients

func (s *CompanyService) ListClients(ctx context.Context, p model.Principal) ([]model.Company, error) {
	if err := authorize(p, policy.ActionManageClients); err != nil {
		return nil, err
	}
	return s.companies.ListClients(ctx, p.Tenant())
}

type CreateClientInput struct {
	Name               string
	Email              string
	Phone              string
	Address            string
	RegistrationNumber string
}

func (s *CompanyService) CreateClient(ctx context.Context, p model.Principal, input CreateClientInput) (*model.Company, error) {
	if err := authorize(p, policy.ActionManageClients); err != nil {
		return nil, err
	}
	name, err := requireText("name", input.Name)
	if err != nil {
		return nil, err
	}
	client := &model.Company{
		Name:               name,
		Type:               model.CompanyTypeClient,
		Phone:              input.Phone,
		Address:            input.Address,
		RegistrationNumber: input.RegistrationNumber,
	}
	if input.Email != "" {
		if client.Email, err = validEmail(input.Email); err != nil {
			return nil, err
		}
	}
	if err := s.companies.CreateClient(ctx, p.Tenant(), client); err != nil {
		return nil, translate(err)
	}
	return client, nil
}

// LinkClient adds an existing client company to the tenant's client list.
func (s *CompanyService) LinkClient(ctx context.Context, p model.Principal, clientID uuid.UUID) (*model.Company, error) {
	if err := authorize(p, policy.ActionManageClients); err != nil {
		return nil, err
	}
	client, err := s.companies.GetByID(ctx, clientID)
	if err != nil {
		return nil, translate(err)
	}
	if client.Type != model.CompanyTypeClient {
		return nil, invalidf("company is not a client")
	}
	if err := s.companies.LinkClient(ctx, p.Tenant(), clientID); err != nil {
		return nil, err
	}
	return client, nil
}

// UnlinkClient removes a client from the list unless tenant operations
// still reference it.
func (s *CompanyService) UnlinkClient(ctx context.Context, p model.Principal, clientID uuid.UUID) error {
	if err := authorize(p, policy.ActionManageClients); err != nil {
		return err
	}
	tenant := p.Tenant()
	ops, err := s.operations.List(ctx, policy.RowScope{TransportCompanyID: &tenant}, model.OperationFilter{ClientCompanyID: &clientID})
	if err != nil {
		return err
	}
	if len(ops) > 0 {
		return conflictf("client is referenced by %d operations", len(ops))
	}
	removed, err := s.companies.UnlinkClient(ctx, tenant, clientID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

// Partners

func (s *CompanyService) ListPartners(ctx context.Context, p model.Principal) ([]model.PartnerLink, error) {
	if err := authorize(p, policy.ActionManagePartners); err != nil {
		return nil, err
	}
	return s.companies.ListPartnerLinks(ctx, p.Tenant(), nil)
}

func (s *CompanyService) RequestPartner(ctx context.Context, p model.Principal, targetID uuid.UUID) (*model.PartnerLink, error) {
	if err := authorize(p, policy.ActionManagePartners); err != nil {
		return nil, err
	}
	tenant := p.Tenant()
	if targetID == tenant {
		return nil, invalidf("a company cannot partner with itself")
	}
	if _, err := s.companies.GetByID(ctx, targetID); err != nil {
		return nil, translate(err)
	}
	_, err := s.companies.FindPartnerLinkBetween(ctx, tenant, targetID)
	switch {
	case err == nil:
		return nil, conflictf("partner link already exists")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	link := &model.PartnerLink{
		RequesterCompanyID: tenant,
		TargetCompanyID:    targetID,
		Status:             model.LinkStatusPending,
	}
	if err := s.companies.CreatePartnerLink(ctx, link); err != nil {
		return nil, translate(err)
	}
	return link, nil
}

// ConfirmPartner activates a link; only the invited company may confirm.
func (s *CompanyService) ConfirmPartner(ctx context.Context, p model.Principal, linkID uuid.UUID) (*model.PartnerLink, error) {
	if err := authorize(p, policy.ActionManagePartners); err != nil {
		return nil, err
	}
	link, err := s.partnerLink(ctx, p, linkID)
	if err != nil {
		return nil, err
	}
	if link.TargetCompanyID != p.Tenant() {
		return nil, ErrPermissionDenied
	}
	if link.Status == model.LinkStatusActive {
		return nil, conflictf("partner link already active")
	}
	now := s.now().UTC()
	if err := s.companies.ActivatePartnerLink(ctx, linkID, p.Tenant(), now); err != nil {
		return nil, translate(err)
	}
	link.Status = model.LinkStatusActive
	link.ConfirmedAt = &now
	return link, nil
}

// RemovePartner deletes a link from either side, pending or active.
func (s *CompanyService) RemovePartner(ctx context.Context, p model.Principal, linkID uuid.UUID) error {
	if err := authorize(p, policy.ActionManagePartners); err != nil {
		return err
	}
	if _, err := s.partnerLink(ctx, p, linkID); err != nil {
		return err
	}
	return s.companies.DeletePartnerLink(ctx, linkID)
}

func (s *CompanyService) partnerLink(ctx context.Context, p model.Principal, linkID uuid.UUID) (*model.PartnerLink, error) {
	link, err := s.companies.GetPartnerLink(ctx, linkID)
	if err != nil {
		return nil, translate(err)
	}
	tenant := p.Tenant()
	if link.RequesterCompanyID != tenant && link.TargetCompanyID != tenant {
		return nil, ErrNotFound
	}
	return link, nil
}
