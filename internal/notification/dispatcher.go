// Package notification delivers approval-related emails. Delivery is always
// best-effort; callers never fail a workflow transition on a send error.
package notification

import "context"

// ApprovalRequest is the payload for a pending-step notification.
type ApprovalRequest struct {
	ApproverEmail string
	DocumentID    string
	EntryLabel    string
	Amount        int64
	Currency      string
	Counterparty  string
	StepNumber    int
	TotalSteps    int
}

// DecisionNotice informs the submitter that a workflow reached a decision.
type DecisionNotice struct {
	SubmitterEmail string
	DocumentID     string
	Approved       bool
	Reason         string
}

type Dispatcher interface {
	SendApprovalRequest(ctx context.Context, req ApprovalRequest) error
	SendDecisionNotice(ctx context.Context, notice DecisionNotice) error
}

type NoOpDispatcher struct{}

func (NoOpDispatcher) SendApprovalRequest(ctx context.Context, req ApprovalRequest) error {
	return nil
}

func (NoOpDispatcher) SendDecisionNotice(ctx context.Context, notice DecisionNotice) error {
	return nil
}
