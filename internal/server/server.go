// Package server wires the HTTP surface: feature modules, middleware chain,
// route registration and server lifecycle.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chriis-fr/global-sub005/internal/approvalsettings"
	settingsdomain "github.com/chriis-fr/global-sub005/internal/approvalsettings/domain"
	"github.com/chriis-fr/global-sub005/internal/audit"
	auditdomain "github.com/chriis-fr/global-sub005/internal/audit/domain"
	"github.com/chriis-fr/global-sub005/internal/authorization"
	"github.com/chriis-fr/global-sub005/internal/clock"
	"github.com/chriis-fr/global-sub005/internal/config"
	"github.com/chriis-fr/global-sub005/internal/document"
	documentdomain "github.com/chriis-fr/global-sub005/internal/document/domain"
	"github.com/chriis-fr/global-sub005/internal/ledgersync"
	ledgerdomain "github.com/chriis-fr/global-sub005/internal/ledgersync/domain"
	"github.com/chriis-fr/global-sub005/internal/logger"
	"github.com/chriis-fr/global-sub005/internal/migration"
	"github.com/chriis-fr/global-sub005/internal/notification"
	"github.com/chriis-fr/global-sub005/internal/observability"
	obslogger "github.com/chriis-fr/global-sub005/internal/observability/logger"
	obsmetrics "github.com/chriis-fr/global-sub005/internal/observability/metrics"
	obstracing "github.com/chriis-fr/global-sub005/internal/observability/tracing"
	"github.com/chriis-fr/global-sub005/internal/organization"
	organizationdomain "github.com/chriis-fr/global-sub005/internal/organization/domain"
	"github.com/chriis-fr/global-sub005/internal/reconciliation"
	"github.com/chriis-fr/global-sub005/internal/workflow"
	workflowdomain "github.com/chriis-fr/global-sub005/internal/workflow/domain"
	"github.com/chriis-fr/global-sub005/pkg/db"
)

var Module = fx.Module("http.server",
	config.Module,
	logger.Module,
	clock.Module,
	db.Module,
	observability.Module,
	migration.Module,
	authorization.Module,
	audit.Module,
	organization.Module,
	approvalsettings.Module,
	document.Module,
	workflow.Module,
	ledgersync.Module,
	notification.Module,
	reconciliation.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(obsmetrics.Handler()))

	return r
}

func registerGin(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(log, metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	db              *gorm.DB
	genID           *snowflake.Node
	clk             clock.Clock
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	organizationSvc organizationdomain.Service
	settingsSvc     settingsdomain.Service
	documentRepo    documentdomain.Repository
	workflowSvc     workflowdomain.Service
	workflowRepo    workflowdomain.Repository
	ledgerSvc       ledgerdomain.Service
	ledgerRepo      ledgerdomain.Repository
	sweeper         *reconciliation.Sweeper
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	DB              *gorm.DB
	GenID           *snowflake.Node
	Clk             clock.Clock
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	OrganizationSvc organizationdomain.Service
	SettingsSvc     settingsdomain.Service
	DocumentRepo    documentdomain.Repository
	WorkflowSvc     workflowdomain.Service
	WorkflowRepo    workflowdomain.Repository
	LedgerSvc       ledgerdomain.Service
	LedgerRepo      ledgerdomain.Repository
	Sweeper         *reconciliation.Sweeper
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		db:              p.DB,
		genID:           p.GenID,
		clk:             p.Clk,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		organizationSvc: p.OrganizationSvc,
		settingsSvc:     p.SettingsSvc,
		documentRepo:    p.DocumentRepo,
		workflowSvc:     p.WorkflowSvc,
		workflowRepo:    p.WorkflowRepo,
		ledgerSvc:       p.LedgerSvc,
		ledgerRepo:      p.LedgerRepo,
		sweeper:         p.Sweeper,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(RequestActor())
	v1.Use(OrgContext())

	orgs := v1.Group("/organizations")
	{
		orgs.POST("", s.createOrganization)
		orgs.GET("/:org_id", s.authorizeOrg(authorization.ObjectOrganization, authorization.ActionOrganizationView), s.getOrganization)
		orgs.GET("/:org_id/members", s.authorizeOrg(authorization.ObjectOrganization, authorization.ActionOrganizationView), s.listMembers)
		orgs.POST("/:org_id/members", s.authorizeOrg(authorization.ObjectOrganization, authorization.ActionOrganizationManage), s.addMember)
		orgs.PATCH("/:org_id/members/:user_id", s.authorizeOrg(authorization.ObjectOrganization, authorization.ActionOrganizationManage), s.changeMemberRole)

		orgs.GET("/:org_id/approval-settings", s.authorizeOrg(authorization.ObjectApprovalSettings, authorization.ActionApprovalSettingsView), s.getApprovalSettings)
		orgs.GET("/:org_id/approval-settings/effective", s.authorizeOrg(authorization.ObjectApprovalSettings, authorization.ActionApprovalSettingsView), s.getEffectiveApprovalSettings)
		orgs.PUT("/:org_id/approval-settings", s.authorizeOrg(authorization.ObjectApprovalSettings, authorization.ActionApprovalSettingsManage), s.setApprovalSettings)
	}

	docs := v1.Group("/documents")
	{
		docs.POST("", s.createDocument)
		docs.GET("", s.authorizeOrg(authorization.ObjectDocument, authorization.ActionDocumentView), s.listDocuments)
		docs.GET("/:document_id", s.getDocument)
		docs.POST("/:document_id/submit", s.submitDocument)
		docs.POST("/:document_id/pay", s.payDocument)
		docs.POST("/:document_id/cancel", s.cancelDocument)
	}

	workflows := v1.Group("/workflows")
	{
		workflows.GET("/:workflow_id", s.getWorkflow)
		workflows.POST("/:workflow_id/decisions", s.decideWorkflow)
	}

	v1.GET("/ledger-entries", s.listLedgerEntries)
	v1.GET("/audit-logs", s.authorizeOrg(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.listAuditLogs)
	v1.POST("/reconciliation/run", s.authorizeOrg(authorization.ObjectReconciliation, authorization.ActionReconciliationRun), s.runReconciliation)
}
