package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrganization(ctx context.Context, org Organization) error
	GetOrganization(ctx context.Context, orgID snowflake.ID) (*Organization, error)

	AddMember(ctx context.Context, member OrganizationMember) error
	GetMember(ctx context.Context, orgID snowflake.ID, userID string) (*OrganizationMember, error)
	GetMemberByEmail(ctx context.Context, orgID snowflake.ID, email string) (*OrganizationMember, error)
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]OrganizationMember, error)
	ListMembersByRole(ctx context.Context, orgID snowflake.ID, role Role) ([]OrganizationMember, error)
	CountMembersByRole(ctx context.Context, orgID snowflake.ID, role Role) (int64, error)
	UpdateMemberRole(ctx context.Context, orgID snowflake.ID, userID string, role Role) error
	UpdateMemberOverrides(ctx context.Context, orgID snowflake.ID, userID string, overrides map[string]any) error
}
