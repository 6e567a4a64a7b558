package permission

import (
	"testing"

	orgdomain "github.com/chriis-fr/global-sub005/internal/organization/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func member(role orgdomain.Role, overrides map[string]any) *orgdomain.OrganizationMember {
	return &orgdomain.OrganizationMember{
		UserID:    "u-1",
		Email:     "user@example.com",
		Role:      role,
		Overrides: datatypes.JSONMap(overrides),
	}
}

func TestEvaluateRoleBundles(t *testing.T) {
	cases := []struct {
		name   string
		role   orgdomain.Role
		action Action
		want   bool
	}{
		{"finance manager approves", orgdomain.RoleFinanceManager, ActionApproveBills, true},
		{"finance manager manages settings", orgdomain.RoleFinanceManager, ActionManageSettings, true},
		{"accountant creates bills", orgdomain.RoleAccountant, ActionCreateBills, true},
		{"accountant cannot approve", orgdomain.RoleAccountant, ActionApproveBills, false},
		{"approver approves", orgdomain.RoleApprover, ActionApproveBills, true},
		{"approver cannot manage settings", orgdomain.RoleApprover, ActionManageSettings, false},
		{"member has nothing", orgdomain.RoleMember, ActionApproveBills, false},
		{"member cannot view finance", orgdomain.RoleMember, ActionViewFinance, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(member(tc.role, nil), tc.action))
		})
	}
}

func TestEvaluateOverridesWin(t *testing.T) {
	granted := member(orgdomain.RoleMember, map[string]any{string(ActionApproveBills): true})
	assert.True(t, Evaluate(granted, ActionApproveBills))

	revoked := member(orgdomain.RoleApprover, map[string]any{string(ActionApproveBills): false})
	assert.False(t, Evaluate(revoked, ActionApproveBills))

	// Non-boolean override values are ignored; bundle default applies.
	garbage := member(orgdomain.RoleApprover, map[string]any{string(ActionApproveBills): "yes"})
	assert.True(t, Evaluate(garbage, ActionApproveBills))
}

func TestEvaluateOwnerAdminBypass(t *testing.T) {
	owner := member(orgdomain.RoleOwner, map[string]any{string(ActionManageSettings): false})
	admin := member(orgdomain.RoleAdmin, nil)

	for _, action := range []Action{ActionCreateBills, ActionApproveBills, ActionExecutePayments, ActionManageSettings, ActionViewFinance} {
		assert.True(t, Evaluate(owner, action), "owner bypass for %s", action)
		assert.True(t, Evaluate(admin, action), "admin bypass for %s", action)
	}
}

func TestEvaluateNilAndUnknown(t *testing.T) {
	assert.False(t, Evaluate(nil, ActionApproveBills))
	assert.False(t, Evaluate(member(orgdomain.Role("ghost"), nil), ActionApproveBills))
}
