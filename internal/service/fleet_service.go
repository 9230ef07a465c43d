package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/policy"
	"github.com/nurpe/haulops/internal/repository"
)

// tenantScopes resolves which drivers and vehicles a tenant reaches.
type tenantScopes struct {
	companies *repository.CompanyRepository
	subs      *repository.SubcontractorRepository
}

func (t tenantScopes) visible(ctx context.Context, tenantID uuid.UUID) (repository.Visibility, error) {
	partners, err := t.companies.ActivePartnerIDs(ctx, tenantID)
	if err != nil {
		return repository.Visibility{}, err
	}
	return t.subs.Visible(ctx, tenantID, partners)
}

func (t tenantScopes) managed(ctx context.Context, tenantID uuid.UUID) (repository.Visibility, error) {
	return t.subs.Managed(ctx, tenantID)
}

// owner resolves the requested owner. A nil or zero subcontractor id means
// the tenant itself; otherwise it must be one of the tenant's records.
func (t tenantScopes) owner(ctx context.Context, tenantID uuid.UUID, subcontractorID *uuid.UUID) (model.Owner, error) {
	if subcontractorID == nil || *subcontractorID == uuid.Nil {
		return model.CompanyOwner(tenantID), nil
	}
	if _, err := t.subs.Get(ctx, tenantID, *subcontractorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Owner{}, invalidf("unknown subcontractor")
		}
		return model.Owner{}, err
	}
	return model.SubcontractorOwner(*subcontractorID), nil
}

type FleetService struct {
	scopes     tenantScopes
	users      *repository.UserRepository
	drivers    *repository.DriverRepository
	vehicles   *repository.VehicleRepository
	operations *repository.OperationRepository
}

func NewFleetService(
	companies *repository.CompanyRepository,
	subs *repository.SubcontractorRepository,
	users *repository.UserRepository,
	drivers *repository.DriverRepository,
	vehicles *repository.VehicleRepository,
	operations *repository.OperationRepository,
) *FleetService {
	return &FleetService{
		scopes:     tenantScopes{companies: companies, subs: subs},
		users:      users,
		drivers:    drivers,
		vehicles:   vehicles,
		operations: operations,
	}
}

// Drivers

func (s *FleetService) ListDrivers(ctx context.Context, p model.Principal) ([]model.Driver, error) {
	if err := authorize(p, policy.ActionViewFleet); err != nil {
		return nil, err
	}
	v, err := s.scopes.visible(ctx, p.Tenant())
	if err != nil {
		return nil, err
	}
	return s.drivers.List(ctx, v)
}

func (s *FleetService) GetDriver(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Driver, error) {
	if err := authorize(p, policy.ActionViewFleet); err != nil {
		return nil, err
	}
	v, err := s.scopes.visible(ctx, p.Tenant())
	if err != nil {
		return nil, err
	}
	driver, err := s.drivers.Get(ctx, v, id)
	return driver, translate(err)
}

type DriverInput struct {
	FirstName       *string
	LastName        *string
	Phone           *string
	LicenseNumber   *string
	Active          *bool
	UserID          *uuid.UUID
	SubcontractorID *uuid.UUID
}

func (s *FleetService) CreateDriver(ctx context.Context, p model.Principal, input DriverInput) (*model.Driver, error) {
	if err := authorize(p, policy.ActionManageFleet); err != nil {
		return nil, err
	}
	driver := &model.Driver{Active: true}
	if err := s.applyDriver(ctx, p, driver, input, true); err != nil {
		return nil, err
	}
	if err := s.drivers.Create(ctx, driver); err != nil {
		return nil, translate(err)
	}
	return driver, nil
}

func (s *FleetService) UpdateDriver(ctx context.Context, p model.Principal, id uuid.UUID, input DriverInput) (*model.Driver, error) {
	if err := authorize(p, policy.ActionManageFleet); err != nil {
		return nil, err
	}
	driver, err := s.managedDriver(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyDriver(ctx, p, driver, input, false); err != nil {
		return nil, err
	}
	if err := s.drivers.Save(ctx, driver); err != nil {
		return nil, translate(err)
	}
	return driver, nil
}

func (s *FleetService) DeleteDriver(ctx context.Context, p model.Principal, id uuid.UUID) error {
	if err := authorize(p, policy.ActionManageFleet); err != nil {
		return err
	}
	if _, err := s.managedDriver(ctx, p, id); err != nil {
		return err
	}
	count, err := s.operations.CountReferencing(ctx, repository.RefDriver, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return conflictf("driver is referenced by %d operations", count)
	}
	return translate(s.drivers.Delete(ctx, id))
}

// managedDriver returns a driver the tenant may change. Drivers that are
// only visible through a link are read only.
func (s *FleetService) managedDriver(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Driver, error) {
	managed, err := s.scopes.managed(ctx, p.Tenant())
	if err != nil {
		return nil, err
	}
	driver, err := s.drivers.Get(ctx, managed, id)
	if err == nil {
		return driver, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, visErr := s.GetDriver(ctx, p, id); visErr == nil {
		return nil, ErrPermissionDenied
	}
	return nil, ErrNotFound
}

func (s *FleetService) applyDriver(ctx context.Context, p model.Principal, d *model.Driver, input DriverInput, create bool) error {
	if create || input.FirstName != nil {
		name, err := requireText("first_name", deref(input.FirstName))
		if err != nil {
			return err
		}
		d.FirstName = name
	}
	if create || input.LastName != nil {
		name, err := requireText("last_name", deref(input.LastName))
		if err != nil {
			return err
		}
		d.LastName = name
	}
	applyText(&d.Phone, input.Phone)
	applyText(&d.LicenseNumber, input.LicenseNumber)
	if input.Active != nil {
		d.Active = *input.Active
	}
	if create || input.SubcontractorID != nil {
		owner, err := s.scopes.owner(ctx, p.Tenant(), input.SubcontractorID)
		if err != nil {
			return err
		}
		d.SetOwner(owner)
	}
	if input.UserID != nil {
		if *input.UserID == uuid.Nil {
			d.UserID = nil
			return nil
		}
		user, err := s.users.GetInCompany(ctx, p.Tenant(), *input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalidf("unknown user")
			}
			return err
		}
		if user.Role != model.RoleDriver {
			return invalidf("linked user must have the DRIVER role")
		}
		d.UserID = &user.ID
	}
	return nil
}

// Vehicles

func (s *FleetService) ListVehicles(ctx context.Context, p model.Principal) ([]model.Vehicle, error) {
	if err := authorize(p, policy.ActionViewFleet); err != nil {
		return nil, err
	}
	v, err := s.scopes.visible(ctx, p.Tenant())
	if err != nil {
		return nil, err
	}
	return s.vehicles.List(ctx, v)
}

func (s *FleetService) GetVehicle(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Vehicle, error) {
	if err := authorize(p, policy.ActionViewFleet); err != nil {
		return nil, err
	}
	v, err := s.scopes.visible(ctx, p.Tenant())
	if err != nil {
		return nil, err
	}
	vehicle, err := s.vehicles.Get(ctx, v, id)
	return vehicle, translate(err)
}

type VehicleInput struct {
	PlateNumber     *string
	Kind            *string
	Brand           *string
	Model           *string
	CapacityKg      *float64
	Active          *bool
	SubcontractorID *uuid.UUID
}

func (s *FleetService) CreateVehicle(ctx context.Context, p model.Principal, input VehicleInput) (*model.Vehicle, error) {
	if err := authorize(p, policy.ActionManageFleet); err != nil {
		return nil, err
	}
	vehicle := &model.Vehicle{Active: true}
	if err := s.applyVehicle(ctx, p, vehicle, input, true); err != nil {
		return nil, err
	}
	if err := s.vehicles.Create(ctx, vehicle); err != nil {
		return nil, translate(err)
	}
	return vehicle, nil
}

func (s *FleetService) UpdateVehicle(ctx context.Context, p model.Principal, id uuid.UUID, input VehicleInput) (*model.Vehicle, error) {
	if err := authorize(p, policy.ActionManageFleet); err != nil {
		return nil, err
	}
	vehicle, err := s.managedVehicle(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyVehicle(ctx, p, vehicle, input, false); err != nil {
		return nil, err
	}
	if err := s.vehicles.Save(ctx, vehicle); err != nil {
		return nil, translate(err)
	}
	return vehicle, nil
}

func (s *FleetService) DeleteVehicle(ctx context.Context, p model.Principal, id uuid.UUID) error {
	if err := authorize(p, policy.ActionManageFleet); err != nil {
		return err
	}
	if _, err := s.managedVehicle(ctx, p, id); err != nil {
		return err
	}
	count, err := s.operations.CountReferencing(ctx, repository.RefVehicle, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return conflictf("vehicle is referenced by %d operations", count)
	}
	return translate(s.vehicles.Delete(ctx, id))
}

func (s *FleetService) managedVehicle(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Vehicle, error) {
	managed, err := s.scopes.managed(ctx, p.Tenant())
	if err != nil {
		return nil, err
	}
	vehicle, err := s.vehicles.Get(ctx, managed, id)
	if err == nil {
		return vehicle, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, visErr := s.GetVehicle(ctx, p, id); visErr == nil {
		return nil, ErrPermissionDenied
	}
	return nil, ErrNotFound
}

func (s *FleetService) applyVehicle(ctx context.Context, p model.Principal, v *model.Vehicle, input VehicleInput, create bool) error {
	if create || input.PlateNumber != nil {
		plate, err := requireText("plate_number", deref(input.PlateNumber))
		if err != nil {
			return err
		}
		v.PlateNumber = strings.ToUpper(plate)
	}
	applyText(&v.Kind, input.Kind)
	applyText(&v.Brand, input.Brand)
	applyText(&v.Model, input.Model)
	if input.CapacityKg != nil {
		if err := nonNegative("capacity_kg", input.CapacityKg); err != nil {
			return err
		}
		v.CapacityKg = input.CapacityKg
	}
	if input.Active != nil {
		v.Active = *input.Active
	}
	if create || input.SubcontractorID != nil {
		owner, err := s.scopes.owner(ctx, p.Tenant(), input.SubcontractorID)
		if err != nil {
			return err
		}
		v.SetOwner(owner)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
