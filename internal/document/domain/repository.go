package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type ListFilter struct {
	OrgID          snowflake.ID
	Kind           Kind
	ApprovalStatus ApprovalStatus
	Limit          int
}

type Repository interface {
	Create(ctx context.Context, doc *FinancialDocument) error
	Get(ctx context.Context, id snowflake.ID) (*FinancialDocument, error)
	List(ctx context.Context, filter ListFilter) ([]FinancialDocument, error)

	// SetApprovalStatus writes the status unconditionally (sweep use).
	SetApprovalStatus(ctx context.Context, id snowflake.ID, status ApprovalStatus) error
	// TransitionApprovalStatus writes the status only when the stored status
	// still matches from; returns ErrInvalidState when the precondition fails.
	TransitionApprovalStatus(ctx context.Context, id snowflake.ID, from, to ApprovalStatus) error
	// MarkPaid applies the terminal paid status; forward-only, idempotent.
	// Returns true when the write changed the row.
	MarkPaid(ctx context.Context, id snowflake.ID) (bool, error)
	SetLedgerStatus(ctx context.Context, id snowflake.ID, status LedgerStatus) error
	SetWorkflowID(ctx context.Context, id, workflowID snowflake.ID) error

	FindByRelatedInvoice(ctx context.Context, invoiceID snowflake.ID) (*FinancialDocument, error)
	FindByRelatedPayable(ctx context.Context, payableID snowflake.ID) (*FinancialDocument, error)
	ListLedgerPending(ctx context.Context, limit int) ([]FinancialDocument, error)
	ListAll(ctx context.Context) ([]FinancialDocument, error)
}
