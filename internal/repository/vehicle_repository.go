package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/haulops/internal/model"
)

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

func (r *VehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) error {
	return r.db.WithContext(ctx).Create(vehicle).Error
}

func (r *VehicleRepository) Get(ctx context.Context, v Visibility, id uuid.UUID) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	err := r.db.WithContext(ctx).Scopes(ownedBy(v)).Where("id = ?", id).First(&vehicle).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *VehicleRepository) List(ctx context.Context, v Visibility) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	err := r.db.WithContext(ctx).
		Scopes(ownedBy(v)).
		Order("plate_number ASC").
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	return mergeByID(func(v model.Vehicle) uuid.UUID { return v.ID }, vehicles), nil
}

func (r *VehicleRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Vehicle, error) {
	if len(ids) == 0 {
		return []model.Vehicle{}, nil
	}
	var vehicles []model.Vehicle
	if err := r.db.WithContext(ctx).Where("id IN ?", uniqueIDs(ids)).Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *VehicleRepository) Save(ctx context.Context, vehicle *model.Vehicle) error {
	return r.db.WithContext(ctx).Save(vehicle).Error
}

func (r *VehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND NOT EXISTS (SELECT 1 FROM operations o WHERE o.vehicle_id = vehicles.id)", id).
		Delete(&model.Vehicle{})
	return deleted(res)
}

func (r *VehicleRepository) CountOwnedBySubcontractor(ctx context.Context, subcontractorID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Vehicle{}).Where("subcontractor_id = ?", subcontractorID).Count(&count).Error
	return count, err
}
