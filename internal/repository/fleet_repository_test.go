package repository

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/haulops/internal/model"
)

func TestDriverRepository_ListVisibleUnion(t *testing.T) {
	f := newFixture(t)
	tenant := f.company("tenant", model.CompanyTypeTransport)
	linked := f.company("linked", model.CompanyTypeTransport)
	partner := f.company("partner", model.CompanyTypeTransport)
	pending := f.company("pending", model.CompanyTypeTransport)
	stranger := f.company("stranger", model.CompanyTypeTransport)

	ownSub := f.subcontractor(tenant.ID, nil, model.LinkStatusActive)
	f.subcontractor(tenant.ID, &linked.ID, model.LinkStatusActive)
	// partner is also reachable as a linked subcontractor company.
	f.subcontractor(tenant.ID, &partner.ID, model.LinkStatusActive)
	f.subcontractor(tenant.ID, &pending.ID, model.LinkStatusPending)
	f.partner(tenant.ID, partner.ID, model.LinkStatusActive)
	f.partner(pending.ID, tenant.ID, model.LinkStatusPending)

	direct := f.driver(model.CompanyOwner(tenant.ID), "direct")
	viaSub := f.driver(model.SubcontractorOwner(ownSub.ID), "viasub")
	viaLinked := f.driver(model.CompanyOwner(linked.ID), "vialinked")
	viaPartner := f.driver(model.CompanyOwner(partner.ID), "viapartner")
	f.driver(model.CompanyOwner(pending.ID), "pending")
	f.driver(model.CompanyOwner(stranger.ID), "stranger")

	companies := NewCompanyRepository(f.db)
	subs := NewSubcontractorRepository(f.db)
	partnerIDs, err := companies.ActivePartnerIDs(f.ctx, tenant.ID)
	require.NoError(t, err)
	visible, err := subs.Visible(f.ctx, tenant.ID, partnerIDs)
	require.NoError(t, err)

	drivers, err := NewDriverRepository(f.db).List(f.ctx, visible)
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]uuid.UUID{direct.ID, viaSub.ID, viaLinked.ID, viaPartner.ID},
		driverIDs(drivers))
	assert.Len(t, visible.CompanyIDs, 3, "tenant, linked and partner once each")
}

func TestDriverRepository_GetOutsideVisibility(t *testing.T) {
	f := newFixture(t)
	tenant := f.company("tenant", model.CompanyTypeTransport)
	other := f.company("other", model.CompanyTypeTransport)
	d := f.driver(model.CompanyOwner(other.ID), "foreign")

	managed, err := NewSubcontractorRepository(f.db).Managed(f.ctx, tenant.ID)
	require.NoError(t, err)

	_, err = NewDriverRepository(f.db).Get(f.ctx, managed, d.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestDriverRepository_SaveKeepsSingleOwner(t *testing.T) {
	f := newFixture(t)
	tenant := f.company("tenant", model.CompanyTypeTransport)
	sub := f.subcontractor(tenant.ID, nil, model.LinkStatusActive)
	d := f.driver(model.CompanyOwner(tenant.ID), "mover")

	repo := NewDriverRepository(f.db)
	d.SetOwner(model.SubcontractorOwner(sub.ID))
	require.NoError(t, repo.Save(f.ctx, &d))

	managed, err := NewSubcontractorRepository(f.db).Managed(f.ctx, tenant.ID)
	require.NoError(t, err)
	got, err := repo.Get(f.ctx, managed, d.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CompanyID)
	require.NotNil(t, got.SubcontractorID)
	assert.Equal(t, sub.ID, *got.SubcontractorID)
}

func TestVehicleRepository_EmptyVisibilityMatchesNothing(t *testing.T) {
	f := newFixture(t)
	tenant := f.company("tenant", model.CompanyTypeTransport)
	f.vehicle(model.CompanyOwner(tenant.ID), "AA-123")

	vehicles, err := NewVehicleRepository(f.db).List(f.ctx, Visibility{})
	require.NoError(t, err)
	assert.Empty(t, vehicles)
}

func TestVehicleRepository_ReferencedByOperation(t *testing.T) {
	f := newFixture(t)
	tenant := f.company("tenant", model.CompanyTypeTransport)
	client := f.company("client", model.CompanyTypeClient)
	admin := f.user(tenant.ID, model.RoleCompanyAdmin)
	used := f.vehicle(model.CompanyOwner(tenant.ID), "USED-1")
	free := f.vehicle(model.CompanyOwner(tenant.ID), "FREE-1")
	f.operation(tenant.ID, client.ID, admin.ID, nil, func(op *model.Operation) {
		op.VehicleID = &used.ID
	})

	ops := NewOperationRepository(f.db)
	n, err := ops.CountReferencing(f.ctx, RefVehicle, used.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = ops.CountReferencing(f.ctx, RefVehicle, free.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = ops.CountReferencing(f.ctx, "notes", free.ID)
	assert.Error(t, err)
}

func TestFleetDeletes_RefuseReferencedRows(t *testing.T) {
	f := newFixture(t)
	tenant := f.company("tenant", model.CompanyTypeTransport)
	client := f.company("client", model.CompanyTypeClient)
	admin := f.user(tenant.ID, model.RoleCompanyAdmin)

	busySub := f.subcontractor(tenant.ID, nil, model.LinkStatusActive)
	fleetSub := f.subcontractor(tenant.ID, nil, model.LinkStatusActive)
	idleSub := f.subcontractor(tenant.ID, nil, model.LinkStatusActive)
	busyDriver := f.driver(model.CompanyOwner(tenant.ID), "busy")
	idleDriver := f.driver(model.CompanyOwner(tenant.ID), "idle")
	busyVehicle := f.vehicle(model.CompanyOwner(tenant.ID), "BUSY-1")
	idleVehicle := f.vehicle(model.CompanyOwner(tenant.ID), "IDLE-1")
	f.vehicle(model.SubcontractorOwner(fleetSub.ID), "SUB-1")

	f.operation(tenant.ID, client.ID, admin.ID, nil, func(op *model.Operation) {
		op.DriverID = &busyDriver.ID
		op.VehicleID = &busyVehicle.ID
		op.SubcontractorID = &busySub.ID
		op.IsSubcontracted = true
	})

	drivers := NewDriverRepository(f.db)
	vehicles := NewVehicleRepository(f.db)
	subs := NewSubcontractorRepository(f.db)

	assert.True(t, errors.Is(drivers.Delete(f.ctx, busyDriver.ID), ErrStateChanged))
	assert.True(t, errors.Is(vehicles.Delete(f.ctx, busyVehicle.ID), ErrStateChanged))
	assert.True(t, errors.Is(subs.Delete(f.ctx, busySub.ID), ErrStateChanged))
	assert.True(t, errors.Is(subs.Delete(f.ctx, fleetSub.ID), ErrStateChanged))

	require.NoError(t, drivers.Delete(f.ctx, idleDriver.ID))
	require.NoError(t, vehicles.Delete(f.ctx, idleVehicle.ID))
	require.NoError(t, subs.Delete(f.ctx, idleSub.ID))

	var remaining int64
	require.NoError(t, f.db.Model(&model.Driver{}).Where("id = ?", busyDriver.ID).Count(&remaining).Error)
	assert.EqualValues(t, 1, remaining)
	require.NoError(t, f.db.Model(&model.Subcontractor{}).Where("id IN ?", []uuid.UUID{busySub.ID, fleetSub.ID}).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining)
}
