package migration

import (
	approvalsettingsdomain "github.com/chriis-fr/global-sub005/internal/approvalsettings/domain"
	auditdomain "github.com/chriis-fr/global-sub005/internal/audit/domain"
	"github.com/chriis-fr/global-sub005/internal/config"
	documentdomain "github.com/chriis-fr/global-sub005/internal/document/domain"
	ledgerdomain "github.com/chriis-fr/global-sub005/internal/ledgersync/domain"
	organizationdomain "github.com/chriis-fr/global-sub005/internal/organization/domain"
	"github.com/chriis-fr/global-sub005/internal/seed"
	workflowdomain "github.com/chriis-fr/global-sub005/internal/workflow/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Versioned migrations target postgres; other dialects are for
			// local and test setups where the ORM schema is authoritative.
			if err := conn.AutoMigrate(
				&organizationdomain.Organization{},
				&organizationdomain.OrganizationMember{},
				&approvalsettingsdomain.OrgApprovalSettings{},
				&documentdomain.FinancialDocument{},
				&workflowdomain.ApprovalWorkflow{},
				&workflowdomain.ApprovalStep{},
				&ledgerdomain.LedgerEntry{},
				&auditdomain.AuditLog{},
			); err != nil {
				return err
			}
		}

		if cfg.DefaultOrgID != 0 {
			return seed.EnsureMainOrgWithID(conn, cfg.DefaultOrgID)
		}
		return seed.EnsureMainOrg(conn)
	}),
)
