package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/haulops/internal/auth"
	"github.com/nurpe/haulops/internal/model"
)

func registerInput(email string) RegisterInput {
	return RegisterInput{
		CompanyName: "Steppe Haulage",
		CompanyType: model.CompanyTypeTransport,
		Email:       email,
		Password:    "correct-horse",
		FirstName:   "Aigerim",
	}
}

func TestAuthService_RegisterStartsTrial(t *testing.T) {
	s := newStack(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.auth.now = func() time.Time { return now }

	session, err := s.auth.Register(s.ctx, registerInput(" Owner@Example.com "))
	require.NoError(t, err)

	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "owner@example.com", session.User.Email)
	assert.Equal(t, model.RoleCompanyAdmin, session.User.Role)
	require.NotNil(t, session.Company)
	require.NotNil(t, session.Company.TrialEndsAt)
	assert.WithinDuration(t, now.AddDate(0, 0, 14), *session.Company.TrialEndsAt, time.Second)
	assert.Nil(t, session.Company.ValidatedAt)

	p, err := auth.NewParser(s.cfg.Auth.AccessSecret, s.cfg.Auth.Issuer).Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, p.UserID)
	assert.Equal(t, model.CompanyTypeTransport, p.CompanyType)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	s := newStack(t)

	short := registerInput("a@example.com")
	short.Password = "short"
	_, err := s.auth.Register(s.ctx, short)
	assert.ErrorIs(t, err, ErrInvalidInput)

	badType := registerInput("b@example.com")
	badType.CompanyType = "SHIPPER"
	_, err = s.auth.Register(s.ctx, badType)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.auth.Register(s.ctx, registerInput("c@example.com"))
	require.NoError(t, err)
	_, err = s.auth.Register(s.ctx, registerInput("C@example.com"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAuthService_Login(t *testing.T) {
	s := newStack(t)
	_, err := s.auth.Register(s.ctx, registerInput("login@example.com"))
	require.NoError(t, err)

	session, err := s.auth.Login(s.ctx, "LOGIN@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "Steppe Haulage", session.Company.Name)

	_, err = s.auth.Login(s.ctx, "login@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = s.auth.Login(s.ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthService_Me(t *testing.T) {
	s := newStack(t)
	carrier := s.tenant("Carrier", model.CompanyTypeTransport)

	profile, err := s.auth.Me(s.ctx, carrier.admin)
	require.NoError(t, err)
	assert.Equal(t, carrier.admin.UserID, profile.User.ID)
	assert.Equal(t, carrier.company.ID, profile.Company.ID)

	_, err = s.auth.Me(s.ctx, platformAdmin())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
