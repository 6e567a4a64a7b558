// Package domain contains the financial-ledger projection model. Entries are
// a derived, read-oriented view of invoices and payables; the source document
// stays authoritative and entries are never deleted.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	documentdomain "github.com/chriis-fr/global-sub005/internal/document/domain"
)

type EntryType string

const (
	EntryTypeReceivable EntryType = "receivable"
	EntryTypePayable    EntryType = "payable"
)

// EntryIDPrefix returns the human-readable id prefix for the entry type.
func (t EntryType) EntryIDPrefix() string {
	if t == EntryTypeReceivable {
		return "RCV"
	}
	return "PAY"
}

// LedgerEntry is one projected receivable or payable. Exactly one of
// RelatedInvoiceID / RelatedPayableID references the source document.
// Uniqueness per source document is enforced by a lookup before insert, not
// by a storage constraint; rare duplicates are healed by reconciliation.
type LedgerEntry struct {
	ID               snowflake.ID              `gorm:"primaryKey" json:"id"`
	EntryID          string                    `gorm:"type:text;not null;index" json:"entry_id"`
	Type             EntryType                 `gorm:"type:text;not null;index" json:"type"`
	OrgID            *snowflake.ID             `gorm:"index" json:"org_id,omitempty"`
	OwnerID          *string                   `gorm:"type:text;index" json:"owner_id,omitempty"`
	Amount           int64                     `gorm:"not null" json:"amount"`
	Currency         string                    `gorm:"type:text;not null" json:"currency"`
	Status           string                    `gorm:"type:text;not null" json:"status"`
	Counterparty     documentdomain.Counterparty `gorm:"type:jsonb;serializer:json;not null" json:"counterparty"`
	RelatedInvoiceID *snowflake.ID             `gorm:"index" json:"related_invoice_id,omitempty"`
	RelatedPayableID *snowflake.ID             `gorm:"index" json:"related_payable_id,omitempty"`
	CreatedAt        time.Time                 `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }
