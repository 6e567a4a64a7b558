// Package domain contains the canonical financial document model. Bills,
// payables and invoices share one status lifecycle and are normalized into
// this shape at the boundary; loose inbound payloads never reach core logic.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Kind string

const (
	KindBill    Kind = "bill"
	KindPayable Kind = "payable"
	KindInvoice Kind = "invoice"
)

func (k Kind) Valid() bool {
	switch k {
	case KindBill, KindPayable, KindInvoice:
		return true
	}
	return false
}

type ApprovalStatus string

const (
	ApprovalStatusDraft    ApprovalStatus = "draft"
	ApprovalStatusPending  ApprovalStatus = "pending_approval"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
	ApprovalStatusPaid     ApprovalStatus = "paid"
	ApprovalStatusCanceled ApprovalStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// LedgerStatus marks whether the derived ledger projection exists. A failed
// projection leaves the document at pending for the reconciliation sweep.
type LedgerStatus string

const (
	LedgerStatusPending LedgerStatus = "pending"
	LedgerStatusSynced  LedgerStatus = "synced"
)

type Counterparty struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Type  string `json:"type"`
}

// FinancialDocument is the canonical record for a bill, payable or invoice.
// Exactly one of OrgID / OwnerID is set.
type FinancialDocument struct {
	ID               snowflake.ID   `gorm:"primaryKey" json:"id"`
	Kind             Kind           `gorm:"type:text;not null;index" json:"kind"`
	OrgID            *snowflake.ID  `gorm:"index" json:"org_id,omitempty"`
	OwnerID          *string        `gorm:"type:text;index" json:"owner_id,omitempty"`
	Counterparty     Counterparty   `gorm:"type:jsonb;serializer:json;not null" json:"counterparty"`
	Amount           int64          `gorm:"not null" json:"amount"`
	Currency         string         `gorm:"type:text;not null" json:"currency"`
	Category         string         `gorm:"type:text" json:"category"`
	DueDate          *time.Time     `json:"due_date,omitempty"`
	ApprovalStatus   ApprovalStatus `gorm:"type:text;not null;index" json:"approval_status"`
	PaymentStatus    PaymentStatus  `gorm:"type:text;not null" json:"payment_status"`
	RelatedInvoiceID *snowflake.ID  `gorm:"index" json:"related_invoice_id,omitempty"`
	RelatedPayableID *snowflake.ID  `gorm:"index" json:"related_payable_id,omitempty"`
	WorkflowID       *snowflake.ID  `gorm:"index" json:"workflow_id,omitempty"`
	LedgerStatus     LedgerStatus   `gorm:"type:text;not null;default:'pending'" json:"ledger_status"`
	SubmittedBy      string         `gorm:"type:text" json:"submitted_by"`
	CreatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (FinancialDocument) TableName() string { return "financial_documents" }

// Receivable reports whether the document projects into the ledger as a
// receivable (money owed to us) rather than a payable.
func (d FinancialDocument) Receivable() bool {
	return d.Kind == KindInvoice
}
