package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/haulops/internal/auth"
	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/policy"
	"github.com/nurpe/haulops/internal/repository"
)

// Roles a company administrator may hand out, per company type.
var assignableRoles = map[model.CompanyType]map[model.Role]bool{
	model.CompanyTypeTransport: {
		model.RoleCompanyAdmin: true,
		model.RoleOperator:     true,
		model.RoleDriver:       true,
	},
	model.CompanyTypeClient: {
		model.RoleCompanyAdmin: true,
		model.RoleClient:       true,
	},
}

type UserService struct {
	users      *repository.UserRepository
	drivers    *repository.DriverRepository
	operations *repository.OperationRepository
	files      FileStore
}

func NewUserService(
	users *repository.UserRepository,
	drivers *repository.DriverRepository,
	operations *repository.OperationRepository,
	files FileStore,
) *UserService {
	return &UserService{users: users, drivers: drivers, operations: operations, files: files}
}

func (s *UserService) List(ctx context.Context, p model.Principal) ([]model.User, error) {
	if err := authorize(p, policy.ActionManageUsers); err != nil {
		return nil, err
	}
	return s.users.ListByCompany(ctx, p.Tenant())
}

type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      model.Role
}

func (s *UserService) Create(ctx context.Context, p model.Principal, input CreateUserInput) (*model.User, error) {
	if err := authorize(p, policy.ActionCreateUser); err != nil {
		return nil, err
	}
	if !assignableRoles[p.CompanyType][input.Role] {
		return nil, invalidf("role %s cannot be assigned in a %s company", input.Role, p.CompanyType)
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

	tenant := p.Tenant()
	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         input.Role,
		CompanyID:    &tenant,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictf("email already registered")
		}
		return nil, err
	}
	return user, nil
}

type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Role      *model.Role
	Password  *string
}

func (s *UserService) Update(ctx context.Context, p model.Principal, id uuid.UUID, input UpdateUserInput) (*model.User, error) {
	if err := authorize(p, policy.ActionManageUsers); err != nil {
		return nil, err
	}
	user, err := s.users.GetInCompany(ctx, p.Tenant(), id)
	if err != nil {
		return nil, translate(err)
	}

	applyText(&user.FirstName, input.FirstName)
	applyText(&user.LastName, input.LastName)
	if input.Role != nil && *input.Role != user.Role {
		if user.ID == p.UserID {
			return nil, invalidf("cannot change your own role")
		}
		if !assignableRoles[p.CompanyType][*input.Role] {
			return nil, invalidf("role %s cannot be assigned in a %s company", *input.Role, p.CompanyType)
		}
		user.Role = *input.Role
	}
	if input.Password != nil {
		if len(*input.Password) < minPasswordLength {
			return nil, invalidf("password must be at least %d characters", minPasswordLength)
		}
		if user.PasswordHash, err = auth.HashPassword(*input.Password); err != nil {
			return nil, err
		}
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user who neither created operations nor backs a driver record.
func (s *UserService) Delete(ctx context.Context, p model.Principal, id uuid.UUID) error {
	if err := authorize(p, policy.ActionManageUsers); err != nil {
		return err
	}
	if id == p.UserID {
		return invalidf("cannot delete yourself")
	}
	if _, err := s.users.GetInCompany(ctx, p.Tenant(), id); err != nil {
		return translate(err)
	}

	count, err := s.operations.CountReferencing(ctx, repository.RefCreator, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return conflictf("user created %d operations", count)
	}
	_, err = s.drivers.GetByUserID(ctx, id)
	switch {
	case err == nil:
		return conflictf("user is linked to a driver")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}
	return s.users.Delete(ctx, id)
}

// SetAvatar stores an image and points the caller's profile at it.
func (s *UserService) SetAvatar(ctx context.Context, p model.Principal, upload Upload) (*model.User, error) {
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return nil, invalidf("avatar must be an image")
	}
	if len(upload.Data) == 0 {
		return nil, invalidf("file is empty")
	}
	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, translate(err)
	}
	url, err := s.files.Put(ctx, uploadKey("avatars", user.ID, upload.FileName), upload.ContentType, upload.Data)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetAvatar(ctx, user.ID, url); err != nil {
		return nil, err
	}
	user.AvatarURL = url
	return user, nil
}
