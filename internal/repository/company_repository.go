package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nurpe/haulops/internal/model"
)

type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Register creates a company together with its first administrator.
func (r *CompanyRepository) Register(ctx context.Context, company *model.Company, admin *model.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(company).Error; err != nil {
			return err
		}
		admin.CompanyID = &company.ID
		return tx.Create(admin).Error
	})
}

func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	var company model.Company
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *CompanyRepository) List(ctx context.Context, companyType *model.CompanyType) ([]model.Company, error) {
	query := r.db.WithContext(ctx).Order("name ASC")
	if companyType != nil {
		query = query.Where("type = ?", *companyType)
	}
	var companies []model.Company
	if err := query.Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *CompanyRepository) Save(ctx context.Context, company *model.Company) error {
	return r.db.WithContext(ctx).Save(company).Error
}

func (r *CompanyRepository) SetValidatedAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.updateColumn(ctx, id, "validated_at", at)
}

func (r *CompanyRepository) SetTrialEndsAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.updateColumn(ctx, id, "trial_ends_at", at)
}

func (r *CompanyRepository) updateColumn(ctx context.Context, id uuid.UUID, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Company{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateClient inserts a client company and links it to the transporter.
func (r *CompanyRepository) CreateClient(ctx context.Context, transportID uuid.UUID, client *model.Company) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(client).Error; err != nil {
			return err
		}
		return tx.Create(&model.ClientLink{
			TransportCompanyID: transportID,
			ClientCompanyID:    client.ID,
		}).Error
	})
}

// LinkClient is idempotent.
func (r *CompanyRepository) LinkClient(ctx context.Context, transportID, clientID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ClientLink{TransportCompanyID: transportID, ClientCompanyID: clientID}).Error
}

func (r *CompanyRepository) UnlinkClient(ctx context.Context, transportID, clientID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("transport_company_id = ? AND client_company_id = ?", transportID, clientID).
		Delete(&model.ClientLink{})
	return res.RowsAffected > 0, res.Error
}

func (r *CompanyRepository) ListLinkedClients(ctx context.Context, transportID uuid.UUID) ([]model.Company, error) {
	var clients []model.Company
	err := r.db.WithContext(ctx).
		Joins("JOIN client_links cl ON cl.client_company_id = companies.id").
		Where("cl.transport_company_id = ?", transportID).
		Order("companies.name ASC").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

// ActivePartnerIDs returns the companies on the other side of every
// confirmed partner link of companyID.
func (r *CompanyRepository) ActivePartnerIDs(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error) {
	links, err := r.ListPartnerLinks(ctx, companyID, ptr(model.LinkStatusActive))
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.Other(companyID))
	}
	return uniqueIDs(ids), nil
}

func (r *CompanyRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Company, error) {
	if len(ids) == 0 {
		return []model.Company{}, nil
	}
	var companies []model.Company
	if err := r.db.WithContext(ctx).Where("id IN ?", uniqueIDs(ids)).Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *CompanyRepository) listByIDs(ctx context.Context, ids []uuid.UUID, companyType model.CompanyType) ([]model.Company, error) {
	if len(ids) == 0 {
		return []model.Company{}, nil
	}
	var companies []model.Company
	err := r.db.WithContext(ctx).
		Where("id IN ? AND type = ?", ids, companyType).
		Order("name ASC").
		Find(&companies).Error
	if err != nil {
		return nil, err
	}
	return companies, nil
}

// ListClients returns every client company visible to the transporter:
// those in its linked-clients list and those reached through confirmed
// partner links. A company reachable both ways appears once.
func (r *CompanyRepository) ListClients(ctx context.Context, transportID uuid.UUID) ([]model.Company, error) {
	linked, err := r.ListLinkedClients(ctx, transportID)
	if err != nil {
		return nil, err
	}
	partnerIDs, err := r.ActivePartnerIDs(ctx, transportID)
	if err != nil {
		return nil, err
	}
	partners, err := r.listByIDs(ctx, partnerIDs, model.CompanyTypeClient)
	if err != nil {
		return nil, err
	}
	return mergeByID(func(c model.Company) uuid.UUID { return c.ID }, linked, partners), nil
}

func (r *CompanyRepository) IsClientVisible(ctx context.Context, transportID, clientID uuid.UUID) (bool, error) {
	clients, err := r.ListClients(ctx, transportID)
	if err != nil {
		return false, err
	}
	for _, c := range clients {
		if c.ID == clientID {
			return true, nil
		}
	}
	return false, nil
}

func (r *CompanyRepository) CreatePartnerLink(ctx context.Context, link *model.PartnerLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *CompanyRepository) GetPartnerLink(ctx context.Context, id uuid.UUID) (*model.PartnerLink, error) {
	var link model.PartnerLink
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// FindPartnerLinkBetween looks in both directions.
func (r *CompanyRepository) FindPartnerLinkBetween(ctx context.Context, a, b uuid.UUID) (*model.PartnerLink, error) {
	var link model.PartnerLink
	err := r.db.WithContext(ctx).
		Where("(requester_company_id = ? AND target_company_id = ?) OR (requester_company_id = ? AND target_company_id = ?)", a, b, b, a).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *CompanyRepository) ListPartnerLinks(ctx context.Context, companyID uuid.UUID, status *model.LinkStatus) ([]model.PartnerLink, error) {
	query := r.db.WithContext(ctx).
		Where("(requester_company_id = ? OR target_company_id = ?)", companyID, companyID).
		Order("created_at ASC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var links []model.PartnerLink
	if err := query.Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// ActivatePartnerLink confirms a pending link; only the target may do so.
func (r *CompanyRepository) ActivatePartnerLink(ctx context.Context, id, targetCompanyID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.PartnerLink{}).
		Where("id = ? AND target_company_id = ? AND status = ?", id, targetCompanyID, model.LinkStatusPending).
		Updates(map[string]interface{}{"status": model.LinkStatusActive, "confirmed_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStateChanged
	}
	return nil
}

func (r *CompanyRepository) DeletePartnerLink(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.PartnerLink{}).Error
}

func ptr[T any](v T) *T {
	return &v
}
