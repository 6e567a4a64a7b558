package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Get(ctx context.Context, orgID snowflake.ID) (*OrgApprovalSettings, error)
	Upsert(ctx context.Context, record *OrgApprovalSettings) error
}

type Service interface {
	// Get returns the stored settings or ErrNotFound.
	Get(ctx context.Context, orgID snowflake.ID) (*Settings, error)
	// Effective returns the stored settings, falling back to the configured
	// defaults when the organization has never saved any.
	Effective(ctx context.Context, orgID snowflake.ID) (Settings, error)
	// Set validates and persists settings. Malformed settings are rejected
	// before any write: a corrupt policy would silently break every future
	// approval decision for the organization.
	Set(ctx context.Context, orgID snowflake.ID, settings Settings) error
}

var (
	ErrNotFound               = errors.New("approval_settings_not_found")
	ErrInvalidOrganization    = errors.New("invalid_organization")
	ErrInvalidThresholds      = errors.New("invalid_amount_thresholds")
	ErrInvalidApproverCounts  = errors.New("invalid_required_approvers")
	ErrInvalidFallbackEmail   = errors.New("invalid_fallback_approver")
	ErrInvalidAutoApprove     = errors.New("invalid_auto_approve")
	ErrInvalidNotifyRecipient = errors.New("invalid_notification_email")
)

// Validate performs structural validation of a settings payload.
func Validate(s Settings) error {
	t := s.ApprovalRules.AmountThresholds
	if t.Low <= 0 || t.Medium <= t.Low || t.High <= t.Medium {
		return ErrInvalidThresholds
	}

	r := s.ApprovalRules.RequiredApprovers
	if r.Low < 1 || r.Medium < 1 || r.High < 1 {
		return ErrInvalidApproverCounts
	}

	for _, email := range s.FallbackApprovers {
		if !validEmail(email) {
			return ErrInvalidFallbackEmail
		}
	}

	if s.AutoApprove.Enabled && s.AutoApprove.Conditions.AmountLimit <= 0 {
		return ErrInvalidAutoApprove
	}

	for _, email := range s.NotificationEmails {
		if !validEmail(email) {
			return ErrInvalidNotifyRecipient
		}
	}

	return nil
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}
