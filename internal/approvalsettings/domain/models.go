// Package domain defines per-organization approval policy storage.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tier buckets an amount for step-count selection.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// AmountThresholds are strictly increasing tier boundaries in minor currency
// units. An amount below Low is low tier, below Medium is medium tier,
// anything else high tier.
type AmountThresholds struct {
	Low    int64 `json:"low"`
	Medium int64 `json:"medium"`
	High   int64 `json:"high"`
}

// RequiredApprovers is the approval step count per tier, each at least 1.
type RequiredApprovers struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

type ApprovalRules struct {
	AmountThresholds  AmountThresholds  `json:"amount_thresholds"`
	RequiredApprovers RequiredApprovers `json:"required_approvers"`
}

type AutoApproveConditions struct {
	VendorWhitelist   []string `json:"vendor_whitelist"`
	CategoryWhitelist []string `json:"category_whitelist"`
	AmountLimit       int64    `json:"amount_limit"`
}

type AutoApprove struct {
	Enabled    bool                  `json:"enabled"`
	Conditions AutoApproveConditions `json:"conditions"`
}

// Settings is the approval policy for one organization.
type Settings struct {
	RequireApproval    bool          `json:"require_approval"`
	ApprovalRules      ApprovalRules `json:"approval_rules"`
	FallbackApprovers  []string      `json:"fallback_approvers"`
	AutoApprove        AutoApprove   `json:"auto_approve"`
	NotificationEmails []string      `json:"notification_emails"`
}

// Tier returns the bucket the amount falls into.
func (s Settings) Tier(amount int64) Tier {
	switch {
	case amount < s.ApprovalRules.AmountThresholds.Low:
		return TierLow
	case amount < s.ApprovalRules.AmountThresholds.Medium:
		return TierMedium
	default:
		return TierHigh
	}
}

// StepsForTier returns the configured approval step count for the tier.
func (s Settings) StepsForTier(tier Tier) int {
	switch tier {
	case TierLow:
		return s.ApprovalRules.RequiredApprovers.Low
	case TierMedium:
		return s.ApprovalRules.RequiredApprovers.Medium
	default:
		return s.ApprovalRules.RequiredApprovers.High
	}
}

// OrgApprovalSettings is the persistence record.
type OrgApprovalSettings struct {
	OrgID              snowflake.ID      `gorm:"primaryKey" json:"org_id"`
	RequireApproval    bool              `gorm:"not null" json:"require_approval"`
	Rules              ApprovalRules     `gorm:"type:jsonb;serializer:json;not null" json:"rules"`
	FallbackApprovers  []string          `gorm:"type:jsonb;serializer:json;not null" json:"fallback_approvers"`
	AutoApprove        AutoApprove       `gorm:"type:jsonb;serializer:json;not null" json:"auto_approve"`
	NotificationEmails []string          `gorm:"type:jsonb;serializer:json;not null" json:"notification_emails"`
	CreatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (OrgApprovalSettings) TableName() string { return "org_approval_settings" }

// Settings converts the record into the policy value.
func (r OrgApprovalSettings) Settings() Settings {
	return Settings{
		RequireApproval:    r.RequireApproval,
		ApprovalRules:      r.Rules,
		FallbackApprovers:  r.FallbackApprovers,
		AutoApprove:        r.AutoApprove,
		NotificationEmails: r.NotificationEmails,
	}
}
