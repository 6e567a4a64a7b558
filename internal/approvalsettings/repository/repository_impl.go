package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/chriis-fr/global-sub005/internal/approvalsettings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Get(ctx context.Context, orgID snowflake.ID) (*domain.OrgApprovalSettings, error) {
	var record domain.OrgApprovalSettings
	if err := r.db.WithContext(ctx).First(&record, "org_id = ?", orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) Upsert(ctx context.Context, record *domain.OrgApprovalSettings) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "org_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"require_approval", "rules", "fallback_approvers",
				"auto_approve", "notification_emails", "updated_at",
			}),
		}).
		Create(record).Error
}
