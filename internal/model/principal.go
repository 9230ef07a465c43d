package model

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleCompanyAdmin Role = "COMPANY_ADMIN"
	RoleOperator     Role = "OPERATOR"
	RoleDriver       Role = "DRIVER"
	RoleClient       Role = "CLIENT"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCompanyAdmin, RoleOperator, RoleDriver, RoleClient:
		return true
	}
	return false
}

// Principal is the verified identity attached to a request.
type Principal struct {
	UserID      uuid.UUID
	Role        Role
	CompanyID   *uuid.UUID
	CompanyType CompanyType
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsCompanyAdmin() bool {
	return p.Role == RoleCompanyAdmin
}

func (p Principal) IsOperator() bool {
	return p.Role == RoleOperator
}

func (p Principal) IsDriver() bool {
	return p.Role == RoleDriver
}

func (p Principal) IsClient() bool {
	return p.Role == RoleClient
}

func (p Principal) HasCompany() bool {
	return p.CompanyID != nil && *p.CompanyID != uuid.Nil
}

// Tenant returns the caller's company id or uuid.Nil for the platform admin.
func (p Principal) Tenant() uuid.UUID {
	if p.CompanyID == nil {
		return uuid.Nil
	}
	return *p.CompanyID
}
