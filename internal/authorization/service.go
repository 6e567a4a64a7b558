// Package authorization enforces route-level access with casbin, backed by
// the organization membership roles. It complements the capability evaluator
// in internal/permission: this layer answers "may this request reach the
// handler", the evaluator answers fine-grained workflow questions inside it.
package authorization

import (
	"context"
	"errors"

	"go.uber.org/fx"
)

const (
	ObjectDocument         = "document"
	ObjectWorkflow         = "workflow"
	ObjectApprovalSettings = "approval_settings"
	ObjectLedger           = "ledger"
	ObjectAuditLog         = "audit_log"
	ObjectReconciliation   = "reconciliation"
	ObjectOrganization     = "organization"
)

const (
	ActionDocumentView   = "document.view"
	ActionDocumentCreate = "document.create"
	ActionDocumentSubmit = "document.submit"
	ActionDocumentPay    = "document.pay"

	ActionWorkflowView   = "workflow.view"
	ActionWorkflowDecide = "workflow.decide"

	ActionApprovalSettingsView   = "approval_settings.view"
	ActionApprovalSettingsManage = "approval_settings.manage"

	ActionLedgerView = "ledger.view"

	ActionAuditLogView = "audit_log.view"

	ActionReconciliationRun = "reconciliation.run"

	ActionOrganizationView   = "organization.view"
	ActionOrganizationManage = "organization.manage"
)

type Service interface {
	// Authorize returns nil when the actor may perform action on object in
	// the organization. actor is "system" or "user:<id>".
	Authorize(ctx context.Context, actor, orgID, object, action string) error
}

var (
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidObject       = errors.New("invalid_object")
	ErrInvalidAction       = errors.New("invalid_action")
)

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)
