// Package policy holds the static role rules that every service consults
// before touching tenant data.
package policy

import (
	"github.com/google/uuid"

	"github.com/nurpe/haulops/internal/model"
)

type Action string

const (
	ActionExtendTrial      Action = "company:extend_trial"
	ActionValidateCompany  Action = "company:validate"
	ActionListCompanies    Action = "company:list"
	ActionManageCompany    Action = "company:manage"
	ActionCreateUser       Action = "user:create"
	ActionManageUsers      Action = "user:manage"
	ActionManagePartners   Action = "partner:manage"
	ActionManageClients    Action = "client:manage"
	ActionManageFleet      Action = "fleet:manage"
	ActionViewFleet        Action = "fleet:view"
	ActionManageOperations Action = "operation:manage"
	ActionViewOperations   Action = "operation:view"
	ActionManageInvoices   Action = "invoice:manage"
	ActionViewInvoices     Action = "invoice:view"
	ActionManagePayments   Action = "payment:manage"
	ActionViewFinance      Action = "finance:view"
)

var roleActions = map[model.Role][]Action{
	model.RoleAdmin: {
		ActionExtendTrial,
		ActionValidateCompany,
		ActionListCompanies,
	},
	model.RoleCompanyAdmin: {
		ActionManageCompany,
		ActionCreateUser,
		ActionManageUsers,
		ActionManagePartners,
		ActionManageClients,
		ActionManageFleet,
		ActionViewFleet,
		ActionManageOperations,
		ActionViewOperations,
		ActionManageInvoices,
		ActionViewInvoices,
		ActionManagePayments,
		ActionViewFinance,
	},
	model.RoleOperator: {
		ActionManageClients,
		ActionManageFleet,
		ActionViewFleet,
		ActionManageOperations,
		ActionViewOperations,
	},
	model.RoleDriver: {
		ActionViewOperations,
	},
	model.RoleClient: {
		ActionViewOperations,
		ActionViewInvoices,
	},
}

// Actions that only make sense inside a transport company.
var transportOnly = map[Action]bool{
	ActionManageClients:    true,
	ActionManageFleet:      true,
	ActionViewFleet:        true,
	ActionManageOperations: true,
	ActionManageInvoices:   true,
	ActionManagePayments:   true,
	ActionViewFinance:      true,
}

var index = buildIndex()

func buildIndex() map[model.Role]map[Action]bool {
	out := make(map[model.Role]map[Action]bool, len(roleActions))
	for role, actions := range roleActions {
		set := make(map[Action]bool, len(actions))
		for _, a := range actions {
			set[a] = true
		}
		out[role] = set
	}
	return out
}

// Allowed reports whether p may perform action at all. Row level checks
// (which tenant, which creator) are separate.
func Allowed(p model.Principal, action Action) bool {
	if !index[p.Role][action] {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	if !p.HasCompany() {
		return false
	}
	if transportOnly[action] && p.CompanyType != model.CompanyTypeTransport {
		return false
	}
	return true
}

// RowScope restricts which operations a caller sees inside its tenant.
type RowScope struct {
	// TransportCompanyID restricts rows to a carrier tenant.
	TransportCompanyID *uuid.UUID
	// ClientCompanyID restricts rows to those billed to a client tenant.
	ClientCompanyID *uuid.UUID
	// CreatedBy restricts rows to those created by one user.
	CreatedBy *uuid.UUID
	// DriverUserID restricts rows to those assigned to the driver record linked to this user.
	DriverUserID *uuid.UUID
}

// OperationScope derives the operation row restriction for p. ok is false
// when p may not list operations at all.
func OperationScope(p model.Principal) (RowScope, bool) {
	if !Allowed(p, ActionViewOperations) {
		return RowScope{}, false
	}
	tenant := p.Tenant()
	userID := p.UserID

	switch p.Role {
	case model.RoleCompanyAdmin:
		if p.CompanyType == model.CompanyTypeClient {
			return RowScope{ClientCompanyID: &tenant}, true
		}
		return RowScope{TransportCompanyID: &tenant}, true
	case model.RoleOperator:
		return RowScope{TransportCompanyID: &tenant, CreatedBy: &userID}, true
	case model.RoleDriver:
		return RowScope{TransportCompanyID: &tenant, DriverUserID: &userID}, true
	case model.RoleClient:
		return RowScope{ClientCompanyID: &tenant}, true
	}
	return RowScope{}, false
}

// CanModifyOperation applies the creator restriction for operators.
func CanModifyOperation(p model.Principal, op model.Operation) bool {
	if !Allowed(p, ActionManageOperations) {
		return false
	}
	if op.TransportCompanyID != p.Tenant() {
		return false
	}
	if p.IsOperator() {
		return op.CreatedByUserID == p.UserID
	}
	return true
}
