package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	documentdomain "github.com/chriis-fr/global-sub005/internal/document/domain"
)

type Service interface {
	// SyncDocumentToLedger ensures exactly one ledger entry references the
	// document; create-once, no-op when present. A returned error is a
	// secondary sync failure: the caller logs it and keeps its primary
	// result, the document stays marked for reconciliation retry.
	SyncDocumentToLedger(ctx context.Context, doc *documentdomain.FinancialDocument) error
	// PropagateStatus translates the workflow's status onto the document and
	// its ledger entry.
	PropagateStatus(ctx context.Context, workflowID snowflake.ID) error
	// MarkPaid applies terminal payment status to the document, mirrors it
	// onto the linked counterpart document in either direction, and syncs
	// ledger entry statuses. Idempotent; forward-only.
	MarkPaid(ctx context.Context, documentID snowflake.ID) error
	// SyncDocumentStatusTwoWay recomputes the document's approval status from
	// its workflow and corrects drift. Reports whether a correction was made.
	SyncDocumentStatusTwoWay(ctx context.Context, doc *documentdomain.FinancialDocument) (bool, error)
}

var (
	ErrNotFound         = errors.New("ledger_entry_not_found")
	ErrEntryIDExhausted = errors.New("entry_id_sequence_exhausted")
	ErrWorkflowNotFound = errors.New("workflow_not_found")
)
