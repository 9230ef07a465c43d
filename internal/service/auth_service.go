package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/haulops/internal/auth"
	"github.com/nurpe/haulops/internal/config"
	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/repository"
)

const minPasswordLength = 8

type AuthService struct {
	companies *repository.CompanyRepository
	users     *repository.UserRepository
	issuer    *auth.Issuer
	trialDays int
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(
	companies *repository.CompanyRepository,
	users *repository.UserRepository,
	issuer *auth.Issuer,
	cfg *config.Config,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		companies: companies,
		users:     users,
		issuer:    issuer,
		trialDays: cfg.Auth.TrialDays,
		log:       log,
		now:       time.Now,
	}
}

type RegisterInput struct {
	CompanyName        string
	CompanyType        model.CompanyType
	RegistrationNumber string
	Phone              string
	Address            string
	Email              string
	Password           string
	FirstName          string
	LastName           string
}

type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      model.User     `json:"user"`
	Company   *model.Company `json:"company,omitempty"`
}

// Register creates a tenant and its first COMPANY_ADMIN, starting the trial.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	name, err := requireText("company_name", input.CompanyName)
	if err != nil {
		return nil, err
	}
	if !input.CompanyType.Valid() {
		return nil, invalidf("company_type must be TRANSPORT or CLIENT")
	}
	email, err := validEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < minPasswordLength {
		return nil, invalidf("password must be at least %d characters", minPasswordLength)
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	trialEnds := s.now().UTC().AddDate(0, 0, s.trialDays)
	company := &model.Company{
		Name:               name,
		Type:               input.CompanyType,
		Email:              email,
		Phone:              input.Phone,
		Address:            input.Address,
		RegistrationNumber: input.RegistrationNumber,
		TrialEndsAt:        &trialEnds,
	}
	admin := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         model.RoleCompanyAdmin,
	}
	if err := s.companies.Register(ctx, company, admin); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictf("email already registered")
		}
		return nil, err
	}

	s.log.Info().
		Str("company_id", company.ID.String()).
		Str("company_type", string(company.Type)).
		Msg("company registered")
	return s.session(*admin, company)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(translate(err), ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, ErrUnauthenticated
	}

	var company *model.Company
	if user.CompanyID != nil {
		company, err = s.companies.GetByID(ctx, *user.CompanyID)
		if err != nil {
			return nil, err
		}
	}
	return s.session(*user, company)
}

type Profile struct {
	User    model.User     `json:"user"`
	Company *model.Company `json:"company,omitempty"`
}

func (s *AuthService) Me(ctx context.Context, p model.Principal) (*Profile, error) {
	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(translate(err), ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	profile := &Profile{User: *user}
	if user.CompanyID != nil {
		company, err := s.companies.GetByID(ctx, *user.CompanyID)
		if err != nil {
			return nil, translate(err)
		}
		profile.Company = company
	}
	return profile, nil
}

func (s *AuthService) session(user model.User, company *model.Company) (*Session, error) {
	token, expires, err := s.issuer.Issue(user, company)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: user, Company: company}, nil
}
