package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/chriis-fr/global-sub005/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor, orgID, object, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, actorType, actorID, err := s.resolveActor(ctx, actor, orgID)
	if err != nil {
		s.auditDenied(ctx, actorType, actorID, orgID, object, action)
		return err
	}

	domain := fmt.Sprintf("org:%s", orgID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actorType, actorID, orgID, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor, orgID string) (string, string, string, *string, error) {
	if actor == "system" {
		return actor, "role:system", "system", nil, nil
	}
	if strings.HasPrefix(actor, "user:") {
		userID := strings.TrimSpace(strings.TrimPrefix(actor, "user:"))
		if userID == "" {
			return "", "", "", nil, ErrInvalidActor
		}
		parsedOrgID, err := snowflake.ParseString(orgID)
		if err != nil || parsedOrgID == 0 {
			return actor, "", "user", &userID, ErrInvalidOrganization
		}
		role, err := s.roleForUser(ctx, parsedOrgID, userID)
		if err != nil {
			return actor, "", "user", &userID, err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), "user", &userID, nil
	}
	return "", "", "", nil, ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, orgID snowflake.ID, userID string) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM organization_members
		 WHERE org_id = ? AND user_id = ?
		 LIMIT 1`,
		orgID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

// ensureGrouping keeps the subject's role binding in the org domain aligned
// with the membership table, replacing a stale binding after a role change.
func (s *ServiceImpl) ensureGrouping(subject, roleName, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorType string, actorID *string, orgID, object, action string) {
	if s.auditSvc == nil {
		return
	}
	parsedOrgID, err := snowflake.ParseString(orgID)
	if err != nil || parsedOrgID == 0 {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, &parsedOrgID, actorType, actorID, "authorization.denied", "authorization", &targetID, map[string]any{
		"object": object,
		"action": action,
		"org_id": orgID,
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	view := [][]string{
		{ObjectDocument, ActionDocumentView},
		{ObjectWorkflow, ActionWorkflowView},
		{ObjectLedger, ActionLedgerView},
		{ObjectOrganization, ActionOrganizationView},
	}
	manage := [][]string{
		{ObjectDocument, ActionDocumentCreate},
		{ObjectDocument, ActionDocumentSubmit},
		{ObjectDocument, ActionDocumentPay},
		{ObjectWorkflow, ActionWorkflowDecide},
		{ObjectApprovalSettings, ActionApprovalSettingsView},
		{ObjectApprovalSettings, ActionApprovalSettingsManage},
		{ObjectAuditLog, ActionAuditLogView},
		{ObjectReconciliation, ActionReconciliationRun},
		{ObjectOrganization, ActionOrganizationManage},
	}

	var policies [][]string
	add := func(role string, rules [][]string) {
		for _, rule := range rules {
			policies = append(policies, []string{role, rule[0], rule[1]})
		}
	}

	for _, role := range []string{"role:owner", "role:admin", "role:system"} {
		add(role, view)
		add(role, manage)
	}

	add("role:finance_manager", view)
	add("role:finance_manager", [][]string{
		{ObjectDocument, ActionDocumentCreate},
		{ObjectDocument, ActionDocumentSubmit},
		{ObjectDocument, ActionDocumentPay},
		{ObjectWorkflow, ActionWorkflowDecide},
		{ObjectApprovalSettings, ActionApprovalSettingsView},
		{ObjectApprovalSettings, ActionApprovalSettingsManage},
		{ObjectAuditLog, ActionAuditLogView},
	})

	add("role:accountant", view)
	add("role:accountant", [][]string{
		{ObjectDocument, ActionDocumentCreate},
		{ObjectDocument, ActionDocumentSubmit},
	})

	add("role:approver", view)
	add("role:approver", [][]string{
		{ObjectWorkflow, ActionWorkflowDecide},
	})

	add("role:member", [][]string{
		{ObjectDocument, ActionDocumentView},
		{ObjectOrganization, ActionOrganizationView},
	})

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
