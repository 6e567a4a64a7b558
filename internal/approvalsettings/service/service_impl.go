package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/chriis-fr/global-sub005/internal/approvalsettings/domain"
	"github.com/chriis-fr/global-sub005/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Repo     domain.Repository
	Defaults *config.ApprovalDefaultsHolder `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	repo     domain.Repository
	defaults *config.ApprovalDefaultsHolder
}

func NewService(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("approvalsettings.service"),
		repo:     p.Repo,
		defaults: p.Defaults,
	}
}

func (s *Service) Get(ctx context.Context, orgID snowflake.ID) (*domain.Settings, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	record, err := s.repo.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	settings := record.Settings()
	return &settings, nil
}

func (s *Service) Effective(ctx context.Context, orgID snowflake.ID) (domain.Settings, error) {
	settings, err := s.Get(ctx, orgID)
	if err == nil {
		return *settings, nil
	}
	if err != domain.ErrNotFound {
		return domain.Settings{}, err
	}

	defaults := config.DefaultApprovalDefaults()
	if s.defaults != nil {
		defaults = s.defaults.Current()
	}
	return domain.Settings{
		RequireApproval: defaults.RequireApproval,
		ApprovalRules: domain.ApprovalRules{
			AmountThresholds: domain.AmountThresholds{
				Low:    defaults.AmountThresholds.Low,
				Medium: defaults.AmountThresholds.Medium,
				High:   defaults.AmountThresholds.High,
			},
			RequiredApprovers: domain.RequiredApprovers{
				Low:    defaults.RequiredApprovers.Low,
				Medium: defaults.RequiredApprovers.Medium,
				High:   defaults.RequiredApprovers.High,
			},
		},
		FallbackApprovers: defaults.FallbackApprovers,
		AutoApprove: domain.AutoApprove{
			Enabled: defaults.AutoApprove.Enabled,
			Conditions: domain.AutoApproveConditions{
				AmountLimit: defaults.AutoApprove.AmountLimit,
			},
		},
	}, nil
}

func (s *Service) Set(ctx context.Context, orgID snowflake.ID, settings domain.Settings) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	if err := domain.Validate(settings); err != nil {
		return err
	}

	now := time.Now().UTC()
	record := domain.OrgApprovalSettings{
		OrgID:              orgID,
		RequireApproval:    settings.RequireApproval,
		Rules:              settings.ApprovalRules,
		FallbackApprovers:  emptyIfNil(settings.FallbackApprovers),
		AutoApprove:        settings.AutoApprove,
		NotificationEmails: emptyIfNil(settings.NotificationEmails),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Upsert(ctx, &record); err != nil {
		return err
	}

	s.log.Info("approval settings saved",
		zap.String("org_id", orgID.String()),
		zap.Bool("require_approval", settings.RequireApproval),
		zap.Bool("auto_approve", settings.AutoApprove.Enabled),
	)
	return nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
