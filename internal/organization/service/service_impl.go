package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/chriis-fr/global-sub005/internal/organization/domain"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func NewService(db *gorm.DB, log *zap.Logger, repo domain.Repository, genID *snowflake.Node) domain.Service {
	return &service{
		db:    db,
		log:   log.Named("organization.service"),
		repo:  repo,
		genID: genID,
	}
}

func (s *service) Create(ctx context.Context, ownerUserID, ownerEmail string, req domain.CreateOrganizationRequest) (*domain.Organization, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	org := domain.Organization{
		ID:           s.genID.Generate(),
		Name:         name,
		Slug:         slug.Make(name),
		SupportEmail: strings.TrimSpace(req.SupportEmail),
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrganization(ctx, org); err != nil {
			return err
		}
		return repo.AddMember(ctx, domain.OrganizationMember{
			ID:        s.genID.Generate(),
			OrgID:     org.ID,
			UserID:    ownerUserID,
			Email:     strings.ToLower(strings.TrimSpace(ownerEmail)),
			Role:      domain.RoleOwner,
			Overrides: datatypes.JSONMap{},
			JoinedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("organization created",
		zap.String("org_id", org.ID.String()),
		zap.String("slug", org.Slug),
	)
	return &org, nil
}

func (s *service) Get(ctx context.Context, orgID snowflake.ID) (*domain.Organization, error) {
	return s.repo.GetOrganization(ctx, orgID)
}

// AddMember enforces the single-owner invariant: an organization has exactly
// one member with the owner role, assigned at creation time.
func (s *service) AddMember(ctx context.Context, orgID snowflake.ID, req domain.AddMemberRequest) (*domain.OrganizationMember, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	if !req.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if req.Role == domain.RoleOwner {
		return nil, domain.ErrOwnerExists
	}

	if existing, err := s.repo.GetMember(ctx, orgID, userID); err == nil && existing != nil {
		return nil, domain.ErrMemberExists
	}

	overrides := datatypes.JSONMap{}
	for key, value := range req.Overrides {
		if strings.TrimSpace(key) == "" {
			continue
		}
		overrides[key] = value
	}

	member := domain.OrganizationMember{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		UserID:    userID,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      req.Role,
		Overrides: overrides,
		JoinedAt:  time.Now().UTC(),
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *service) ChangeMemberRole(ctx context.Context, orgID snowflake.ID, userID string, role domain.Role) error {
	if !role.Valid() {
		return domain.ErrInvalidRole
	}

	member, err := s.repo.GetMember(ctx, orgID, userID)
	if err != nil {
		return err
	}

	if member.Role == domain.RoleOwner && role != domain.RoleOwner {
		return domain.ErrLastOwner
	}
	if member.Role != domain.RoleOwner && role == domain.RoleOwner {
		count, err := s.repo.CountMembersByRole(ctx, orgID, domain.RoleOwner)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrOwnerExists
		}
	}

	return s.repo.UpdateMemberRole(ctx, orgID, userID, role)
}

func (s *service) Member(ctx context.Context, orgID snowflake.ID, userID string) (*domain.OrganizationMember, error) {
	return s.repo.GetMember(ctx, orgID, userID)
}

func (s *service) Members(ctx context.Context, orgID snowflake.ID) ([]domain.OrganizationMember, error) {
	return s.repo.ListMembers(ctx, orgID)
}

// ApproverCandidates returns members eligible to be assigned approval steps,
// in stable join order: dedicated approvers first, then finance managers.
func (s *service) ApproverCandidates(ctx context.Context, orgID snowflake.ID) ([]domain.OrganizationMember, error) {
	approvers, err := s.repo.ListMembersByRole(ctx, orgID, domain.RoleApprover)
	if err != nil {
		return nil, err
	}
	managers, err := s.repo.ListMembersByRole(ctx, orgID, domain.RoleFinanceManager)
	if err != nil {
		return nil, err
	}
	return append(approvers, managers...), nil
}
