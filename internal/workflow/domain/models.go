// Package domain contains the approval workflow state machine models.
//
// A workflow owns an ordered step sequence. While the workflow is pending,
// exactly one step is pending and CurrentStep addresses it. A rejected step
// terminates the workflow immediately; the remaining steps stay pending in
// the record but are never evaluated. Workflows are never deleted.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Terminal reports whether no further decisions may mutate the workflow.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type StepStatus string

const (
	StepStatusPending  StepStatus = "pending"
	StepStatusApproved StepStatus = "approved"
	StepStatusRejected StepStatus = "rejected"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ApprovalWorkflow is one workflow instance for a financial document.
type ApprovalWorkflow struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	DocumentID  snowflake.ID `gorm:"not null;index" json:"document_id"`
	OrgID       snowflake.ID `gorm:"not null;index" json:"organization_id"`
	SubmittedBy string       `gorm:"type:text;not null" json:"submitted_by"`
	Amount      int64        `gorm:"not null" json:"amount"`
	Status      Status       `gorm:"type:text;not null;index" json:"status"`
	CurrentStep int          `gorm:"not null" json:"current_step"`
	TotalSteps  int          `gorm:"not null" json:"total_steps"`
	SubmittedAt time.Time    `gorm:"not null" json:"submitted_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ApprovalWorkflow) TableName() string { return "approval_workflows" }

// ApprovalStep is one (approver, decision) slot, 1-indexed by StepNumber.
type ApprovalStep struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	WorkflowID    snowflake.ID `gorm:"not null;index" json:"workflow_id"`
	StepNumber    int          `gorm:"not null" json:"step_number"`
	ApproverEmail string       `gorm:"type:text;not null" json:"approver_email"`
	Status        StepStatus   `gorm:"type:text;not null" json:"status"`
	DecidedAt     *time.Time   `json:"decided_at,omitempty"`
	Reason        string       `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ApprovalStep) TableName() string { return "approval_steps" }
