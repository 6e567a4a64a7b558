// Package permission evaluates an organization member's capabilities from
// their role bundle and explicit per-member overrides. Evaluation is pure:
// no storage access, no errors.
package permission

import (
	orgdomain "github.com/chriis-fr/global-sub005/internal/organization/domain"
)

// Action names a capability a member may hold.
type Action string

const (
	ActionCreateBills     Action = "bills.create"
	ActionApproveBills    Action = "bills.approve"
	ActionExecutePayments Action = "payments.execute"
	ActionManageSettings  Action = "settings.manage"
	ActionViewFinance     Action = "finance.view"
)

// roleBundles maps each role to its default capability set. Absent actions
// default to false.
var roleBundles = map[orgdomain.Role]map[Action]bool{
	orgdomain.RoleFinanceManager: {
		ActionCreateBills:     true,
		ActionApproveBills:    true,
		ActionExecutePayments: true,
		ActionManageSettings:  true,
		ActionViewFinance:     true,
	},
	orgdomain.RoleAccountant: {
		ActionCreateBills: true,
		ActionViewFinance: true,
	},
	orgdomain.RoleApprover: {
		ActionApproveBills: true,
		ActionViewFinance:  true,
	},
	orgdomain.RoleMember: {},
}

// Evaluate reports whether the member holds the capability. Owner and admin
// pass every check regardless of bundle or override; this is a deliberate,
// documented escape hatch so a misconfigured override map can never lock an
// organization out of its own settings.
func Evaluate(member *orgdomain.OrganizationMember, action Action) bool {
	if member == nil {
		return false
	}

	if member.Role == orgdomain.RoleOwner || member.Role == orgdomain.RoleAdmin {
		return true
	}

	if member.Overrides != nil {
		if raw, ok := member.Overrides[string(action)]; ok {
			if allowed, ok := raw.(bool); ok {
				return allowed
			}
		}
	}

	bundle, ok := roleBundles[member.Role]
	if !ok {
		return false
	}
	return bundle[action]
}
