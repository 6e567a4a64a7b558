package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	documentdomain "github.com/chriis-fr/global-sub005/internal/document/domain"
)

// Actor is the acting user for a decision.
type Actor struct {
	UserID string
	Email  string
}

type Service interface {
	// Create decides whether the submitted document needs approval. When the
	// organization does not require approval, no workflow row is created and
	// (nil, nil) is returned with the document approved directly. When
	// auto-approve conditions match, an already-approved workflow with zero
	// steps is persisted. Otherwise a pending workflow at step 1 is created
	// with one step per required approver for the amount's tier.
	Create(ctx context.Context, doc *documentdomain.FinancialDocument, submitter Actor) (*ApprovalWorkflow, error)
	// Decide records an approval or rejection by the current step's approver.
	Decide(ctx context.Context, workflowID snowflake.ID, actor Actor, decision Decision, reason string) (*ApprovalWorkflow, error)
	Get(ctx context.Context, workflowID snowflake.ID) (*ApprovalWorkflow, []ApprovalStep, error)
}

var (
	ErrNotFound         = errors.New("workflow_not_found")
	ErrPermissionDenied = errors.New("permission_denied")
	ErrInvalidState     = errors.New("invalid_workflow_state")
	ErrInvalidDecision  = errors.New("invalid_decision")
	ErrNoApprovers      = errors.New("no_approvers_available")
)
