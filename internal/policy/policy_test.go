package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/haulops/internal/model"
)

func principal(role model.Role, companyType model.CompanyType) model.Principal {
	p := model.Principal{UserID: uuid.New(), Role: role, CompanyType: companyType}
	if role != model.RoleAdmin {
		id := uuid.New()
		p.CompanyID = &id
	}
	return p
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name   string
		p      model.Principal
		action Action
		want   bool
	}{
		{"admin extends trial", principal(model.RoleAdmin, ""), ActionExtendTrial, true},
		{"admin validates company", principal(model.RoleAdmin, ""), ActionValidateCompany, true},
		{"admin cannot create operations", principal(model.RoleAdmin, ""), ActionManageOperations, false},
		{"company admin cannot extend trial", principal(model.RoleCompanyAdmin, model.CompanyTypeTransport), ActionExtendTrial, false},
		{"company admin creates users", principal(model.RoleCompanyAdmin, model.CompanyTypeTransport), ActionCreateUser, true},
		{"operator cannot create users", principal(model.RoleOperator, model.CompanyTypeTransport), ActionCreateUser, false},
		{"operator manages operations", principal(model.RoleOperator, model.CompanyTypeTransport), ActionManageOperations, true},
		{"operator cannot invoice", principal(model.RoleOperator, model.CompanyTypeTransport), ActionManageInvoices, false},
		{"driver views operations", principal(model.RoleDriver, model.CompanyTypeTransport), ActionViewOperations, true},
		{"driver cannot manage fleet", principal(model.RoleDriver, model.CompanyTypeTransport), ActionManageFleet, false},
		{"client views invoices", principal(model.RoleClient, model.CompanyTypeClient), ActionViewInvoices, true},
		{"client company admin cannot manage fleet", principal(model.RoleCompanyAdmin, model.CompanyTypeClient), ActionManageFleet, false},
		{"client company admin manages partners", principal(model.RoleCompanyAdmin, model.CompanyTypeClient), ActionManagePartners, true},
		{"unknown role", principal(model.Role("GHOST"), model.CompanyTypeTransport), ActionViewOperations, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.p, tt.action))
		})
	}
}

func TestAllowed_RequiresCompany(t *testing.T) {
	p := model.Principal{UserID: uuid.New(), Role: model.RoleCompanyAdmin, CompanyType: model.CompanyTypeTransport}
	assert.False(t, Allowed(p, ActionManageFleet))
}

func TestOperationScope(t *testing.T) {
	t.Run("company admin sees tenant", func(t *testing.T) {
		p := principal(model.RoleCompanyAdmin, model.CompanyTypeTransport)
		scope, ok := OperationScope(p)
		require.True(t, ok)
		assert.Equal(t, p.Tenant(), *scope.TransportCompanyID)
		assert.Nil(t, scope.CreatedBy)
	})

	t.Run("operator restricted to own rows", func(t *testing.T) {
		p := principal(model.RoleOperator, model.CompanyTypeTransport)
		scope, ok := OperationScope(p)
		require.True(t, ok)
		assert.Equal(t, p.Tenant(), *scope.TransportCompanyID)
		assert.Equal(t, p.UserID, *scope.CreatedBy)
	})

	t.Run("driver restricted to assignments", func(t *testing.T) {
		p := principal(model.RoleDriver, model.CompanyTypeTransport)
		scope, ok := OperationScope(p)
		require.True(t, ok)
		assert.Equal(t, p.UserID, *scope.DriverUserID)
	})

	t.Run("client sees billed rows", func(t *testing.T) {
		p := principal(model.RoleClient, model.CompanyTypeClient)
		scope, ok := OperationScope(p)
		require.True(t, ok)
		assert.Nil(t, scope.TransportCompanyID)
		assert.Equal(t, p.Tenant(), *scope.ClientCompanyID)
	})

	t.Run("admin has no operation scope", func(t *testing.T) {
		_, ok := OperationScope(principal(model.RoleAdmin, ""))
		assert.False(t, ok)
	})
}

func TestCanModifyOperation(t *testing.T) {
	operator := principal(model.RoleOperator, model.CompanyTypeTransport)
	colleague := operator
	colleague.UserID = uuid.New()
	admin := principal(model.RoleCompanyAdmin, model.CompanyTypeTransport)
	admin.CompanyID = operator.CompanyID

	op := model.Operation{TransportCompanyID: operator.Tenant(), CreatedByUserID: operator.UserID}

	assert.True(t, CanModifyOperation(operator, op))
	assert.False(t, CanModifyOperation(colleague, op))
	assert.True(t, CanModifyOperation(admin, op))

	foreign := principal(model.RoleCompanyAdmin, model.CompanyTypeTransport)
	assert.False(t, CanModifyOperation(foreign, op))
}
