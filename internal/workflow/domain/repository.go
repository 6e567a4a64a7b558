package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, wf *ApprovalWorkflow, steps []ApprovalStep) error
	Get(ctx context.Context, id snowflake.ID) (*ApprovalWorkflow, error)
	GetByDocument(ctx context.Context, documentID snowflake.ID) (*ApprovalWorkflow, error)
	Steps(ctx context.Context, workflowID snowflake.ID) ([]ApprovalStep, error)
	Step(ctx context.Context, workflowID snowflake.ID, stepNumber int) (*ApprovalStep, error)
	ListAll(ctx context.Context) ([]ApprovalWorkflow, error)

	// DecideStep records a decision on a step only while it is still pending;
	// a failed precondition surfaces as ErrInvalidState, never a retry.
	DecideStep(ctx context.Context, stepID snowflake.ID, status StepStatus, decidedAt time.Time, reason string) error
	// Advance moves a pending workflow from the given step to the next one.
	Advance(ctx context.Context, workflowID snowflake.ID, fromStep int) error
	// Finish terminates a pending workflow at the given step.
	Finish(ctx context.Context, workflowID snowflake.ID, fromStep int, status Status) error
}
