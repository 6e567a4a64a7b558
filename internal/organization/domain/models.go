// Package domain contains persistence models for the organization service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Role is the membership role inside an organization.
type Role string

const (
	RoleOwner          Role = "owner"
	RoleAdmin          Role = "admin"
	RoleFinanceManager Role = "finance_manager"
	RoleAccountant     Role = "accountant"
	RoleApprover       Role = "approver"
	RoleMember         Role = "member"
)

// Valid reports whether the role is one of the known membership roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleFinanceManager, RoleAccountant, RoleApprover, RoleMember:
		return true
	}
	return false
}

// Organization represents a tenant.
type Organization struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name         string            `gorm:"type:text;not null" json:"name"`
	Slug         string            `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	SupportEmail string            `gorm:"type:text;column:support_email" json:"support_email"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// OrganizationMember represents membership of a user in an organization.
// Overrides layer explicit permission grants or denials on top of the role's
// default capability bundle; keys are permission action names, values bools.
type OrganizationMember struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_org_user,priority:1" json:"org_id"`
	UserID    string            `gorm:"type:text;not null;index;uniqueIndex:ux_org_user,priority:2" json:"user_id"`
	Email     string            `gorm:"type:text;not null;index" json:"email"`
	Role      Role              `gorm:"type:text;not null" json:"role"`
	Overrides datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"overrides"`
	JoinedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"joined_at"`
}

// TableName sets the database table name.
func (OrganizationMember) TableName() string { return "organization_members" }
