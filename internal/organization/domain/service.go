package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateOrganizationRequest struct {
	Name         string `json:"name"`
	SupportEmail string `json:"support_email"`
}

type AddMemberRequest struct {
	UserID    string         `json:"user_id"`
	Email     string         `json:"email"`
	Role      Role           `json:"role"`
	Overrides map[string]any `json:"overrides"`
}

type Service interface {
	Create(ctx context.Context, ownerUserID, ownerEmail string, req CreateOrganizationRequest) (*Organization, error)
	Get(ctx context.Context, orgID snowflake.ID) (*Organization, error)
	AddMember(ctx context.Context, orgID snowflake.ID, req AddMemberRequest) (*OrganizationMember, error)
	ChangeMemberRole(ctx context.Context, orgID snowflake.ID, userID string, role Role) error
	Member(ctx context.Context, orgID snowflake.ID, userID string) (*OrganizationMember, error)
	Members(ctx context.Context, orgID snowflake.ID) ([]OrganizationMember, error)
	ApproverCandidates(ctx context.Context, orgID snowflake.ID) ([]OrganizationMember, error)
}

var (
	ErrNotFound       = errors.New("organization_not_found")
	ErrMemberNotFound = errors.New("member_not_found")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidUser    = errors.New("invalid_user")
	ErrInvalidRole    = errors.New("invalid_role")
	ErrOwnerExists    = errors.New("owner_already_exists")
	ErrLastOwner      = errors.New("cannot_remove_last_owner")
	ErrMemberExists   = errors.New("member_already_exists")
)
