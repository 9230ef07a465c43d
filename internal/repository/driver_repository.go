package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/haulops/internal/model"
)

type DriverRepository struct {
	db *gorm.DB
}

func NewDriverRepository(db *gorm.DB) *DriverRepository {
	return &DriverRepository{db: db}
}

func (r *DriverRepository) Create(ctx context.Context, driver *model.Driver) error {
	return r.db.WithContext(ctx).Create(driver).Error
}

// Get returns the driver only when one of the owners in v holds it.
func (r *DriverRepository) Get(ctx context.Context, v Visibility, id uuid.UUID) (*model.Driver, error) {
	var driver model.Driver
	err := r.db.WithContext(ctx).Scopes(ownedBy(v)).Where("id = ?", id).First(&driver).Error
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

// List returns each visible driver once, however many owners in v reach it.
func (r *DriverRepository) List(ctx context.Context, v Visibility) ([]model.Driver, error) {
	var drivers []model.Driver
	err := r.db.WithContext(ctx).
		Scopes(ownedBy(v)).
		Order("last_name ASC, first_name ASC").
		Find(&drivers).Error
	if err != nil {
		return nil, err
	}
	return mergeByID(func(d model.Driver) uuid.UUID { return d.ID }, drivers), nil
}

func (r *DriverRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Driver, error) {
	var driver model.Driver
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&driver).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *DriverRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Driver, error) {
	if len(ids) == 0 {
		return []model.Driver{}, nil
	}
	var drivers []model.Driver
	if err := r.db.WithContext(ctx).Where("id IN ?", uniqueIDs(ids)).Find(&drivers).Error; err != nil {
		return nil, err
	}
	return drivers, nil
}

// Save writes every column, so clearing one owner field persists as NULL.
func (r *DriverRepository) Save(ctx context.Context, driver *model.Driver) error {
	return r.db.WithContext(ctx).Save(driver).Error
}

// Delete removes a driver no operation points at. ErrStateChanged is
// returned when an operation references it by the time the row is deleted.
func (r *DriverRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND NOT EXISTS (SELECT 1 FROM operations o WHERE o.driver_id = drivers.id)", id).
		Delete(&model.Driver{})
	return deleted(res)
}

// CountOwnedBySubcontractor is used before deleting a subcontractor.
func (r *DriverRepository) CountOwnedBySubcontractor(ctx context.Context, subcontractorID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Driver{}).Where("subcontractor_id = ?", subcontractorID).Count(&count).Error
	return count, err
}
