package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/haulops/internal/db/dbtest"
	"github.com/nurpe/haulops/internal/model"
)

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{t: t, ctx: context.Background(), db: dbtest.New(t)}
}

func (f *fixture) company(name string, typ model.CompanyType) model.Company {
	f.t.Helper()
	c := model.Company{Name: name, Type: typ}
	require.NoError(f.t, f.db.Create(&c).Error)
	return c
}

func (f *fixture) user(companyID uuid.UUID, role model.Role) model.User {
	f.t.Helper()
	u := model.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         role,
		CompanyID:    &companyID,
	}
	require.NoError(f.t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) subcontractor(tenantID uuid.UUID, linked *uuid.UUID, status model.LinkStatus) model.Subcontractor {
	f.t.Helper()
	s := model.Subcontractor{TransportCompanyID: tenantID, LinkedCompanyID: linked, Name: "sub", Status: status}
	require.NoError(f.t, f.db.Create(&s).Error)
	return s
}

func (f *fixture) partner(a, b uuid.UUID, status model.LinkStatus) model.PartnerLink {
	f.t.Helper()
	l := model.PartnerLink{RequesterCompanyID: a, TargetCompanyID: b, Status: status}
	require.NoError(f.t, f.db.Create(&l).Error)
	return l
}

func (f *fixture) driver(owner model.Owner, name string) model.Driver {
	f.t.Helper()
	d := model.Driver{FirstName: name, LastName: name, Active: true}
	d.SetOwner(owner)
	require.NoError(f.t, f.db.Create(&d).Error)
	return d
}

func (f *fixture) vehicle(owner model.Owner, plate string) model.Vehicle {
	f.t.Helper()
	v := model.Vehicle{PlateNumber: plate, Active: true}
	v.SetOwner(owner)
	require.NoError(f.t, f.db.Create(&v).Error)
	return v
}

func (f *fixture) operation(tenantID, clientID, creatorID uuid.UUID, sale *float64, mutate ...func(*model.Operation)) model.Operation {
	f.t.Helper()
	op := model.Operation{
		Reference:          "OP-" + uuid.NewString()[:8],
		TransportCompanyID: tenantID,
		ClientCompanyID:    &clientID,
		CreatedByUserID:    creatorID,
		Status:             model.OperationStatusPlanned,
		SalePrice:          sale,
	}
	for _, m := range mutate {
		m(&op)
	}
	require.NoError(f.t, f.db.Create(&op).Error)
	return op
}

func money(v float64) *float64 {
	return &v
}

func driverIDs(drivers []model.Driver) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(drivers))
	for _, d := range drivers {
		ids = append(ids, d.ID)
	}
	return ids
}
