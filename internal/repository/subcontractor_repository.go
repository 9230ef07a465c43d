package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/haulops/internal/model"
)

type SubcontractorRepository struct {
	db *gorm.DB
}

func NewSubcontractorRepository(db *gorm.DB) *SubcontractorRepository {
	return &SubcontractorRepository{db: db}
}

func (r *SubcontractorRepository) Create(ctx context.Context, sub *model.Subcontractor) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

// Get returns the subcontractor only if it belongs to the tenant.
func (r *SubcontractorRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Subcontractor, error) {
	var sub model.Subcontractor
	err := r.db.WithContext(ctx).Scopes(transportTenant(tenantID)).Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByID ignores tenancy; callers check the linked company themselves.
func (r *SubcontractorRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Subcontractor, error) {
	var sub model.Subcontractor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubcontractorRepository) List(ctx context.Context, tenantID uuid.UUID) ([]model.Subcontractor, error) {
	var subs []model.Subcontractor
	err := r.db.WithContext(ctx).Scopes(transportTenant(tenantID)).Order("name ASC").Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *SubcontractorRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Subcontractor, error) {
	if len(ids) == 0 {
		return []model.Subcontractor{}, nil
	}
	var subs []model.Subcontractor
	if err := r.db.WithContext(ctx).Where("id IN ?", uniqueIDs(ids)).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// ListLinkRequests returns pending links that name companyID as the linked company.
func (r *SubcontractorRepository) ListLinkRequests(ctx context.Context, companyID uuid.UUID) ([]model.Subcontractor, error) {
	var subs []model.Subcontractor
	err := r.db.WithContext(ctx).
		Where("linked_company_id = ? AND status = ?", companyID, model.LinkStatusPending).
		Order("created_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *SubcontractorRepository) Save(ctx context.Context, sub *model.Subcontractor) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

// Activate confirms a pending link on behalf of the linked company.
func (r *SubcontractorRepository) Activate(ctx context.Context, id, linkedCompanyID uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.Subcontractor{}).
		Where("id = ? AND linked_company_id = ? AND status = ?", id, linkedCompanyID, model.LinkStatusPending).
		Update("status", model.LinkStatusActive)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStateChanged
	}
	return nil
}

// Delete removes a subcontractor that no operation, driver or vehicle
// references, otherwise ErrStateChanged.
func (r *SubcontractorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where("NOT EXISTS (SELECT 1 FROM operations o WHERE o.subcontractor_id = subcontractors.id)").
		Where("NOT EXISTS (SELECT 1 FROM drivers d WHERE d.subcontractor_id = subcontractors.id)").
		Where("NOT EXISTS (SELECT 1 FROM vehicles v WHERE v.subcontractor_id = subcontractors.id)").
		Delete(&model.Subcontractor{})
	return deleted(res)
}

// Managed lists the owners whose drivers and vehicles the tenant may change:
// itself and its own subcontractor records.
func (r *SubcontractorRepository) Managed(ctx context.Context, tenantID uuid.UUID) (Visibility, error) {
	var subIDs []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.Subcontractor{}).
		Scopes(transportTenant(tenantID)).
		Pluck("id", &subIDs).Error
	if err != nil {
		return Visibility{}, err
	}
	return Visibility{
		CompanyIDs:       []uuid.UUID{tenantID},
		SubcontractorIDs: uniqueIDs(subIDs),
	}, nil
}

// Visible extends Managed with the companies behind ACTIVE subcontractor
// links and the tenant's confirmed partners.
func (r *SubcontractorRepository) Visible(ctx context.Context, tenantID uuid.UUID, partnerIDs []uuid.UUID) (Visibility, error) {
	v, err := r.Managed(ctx, tenantID)
	if err != nil {
		return Visibility{}, err
	}

	var linked []uuid.UUID
	err = r.db.WithContext(ctx).Model(&model.Subcontractor{}).
		Scopes(transportTenant(tenantID)).
		Where("linked_company_id IS NOT NULL AND status = ?", model.LinkStatusActive).
		Pluck("linked_company_id", &linked).Error
	if err != nil {
		return Visibility{}, err
	}

	companies := append(append(v.CompanyIDs, linked...), partnerIDs...)
	v.CompanyIDs = uniqueIDs(companies)
	return v, nil
}
