package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound           = errors.New("document_not_found")
	ErrInvalidKind        = errors.New("invalid_document_kind")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidCurrency    = errors.New("invalid_currency")
	ErrAmbiguousOwnership = errors.New("ambiguous_ownership")
	ErrMissingOwnership   = errors.New("missing_ownership")
	ErrInvalidState       = errors.New("invalid_document_state")
)

// RawDocument is the loosely-typed inbound shape. Callers may send amount or
// total, an organization or an individual owner, and partial counterparty
// info; Normalize resolves all of that into a canonical FinancialDocument.
type RawDocument struct {
	Kind             string     `json:"kind"`
	OrganizationID   string     `json:"organization_id"`
	OwnerID          string     `json:"owner_id"`
	Amount           int64      `json:"amount"`
	Total            int64      `json:"total"`
	Currency         string     `json:"currency"`
	Category         string     `json:"category"`
	DueDate          *time.Time `json:"due_date"`
	CounterpartyName string     `json:"counterparty_name"`
	CounterpartyMail string     `json:"counterparty_email"`
	CounterpartyType string     `json:"counterparty_type"`
	RelatedInvoiceID string     `json:"related_invoice_id"`
	RelatedPayableID string     `json:"related_payable_id"`
}

// Normalize validates a raw payload and returns the canonical document,
// without ID or timestamps; the service assigns those.
func Normalize(raw RawDocument) (*FinancialDocument, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(raw.Kind)))
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}

	amount := raw.Amount
	if amount == 0 {
		amount = raw.Total
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if len(currency) != 3 {
		return nil, ErrInvalidCurrency
	}

	orgRaw := strings.TrimSpace(raw.OrganizationID)
	ownerRaw := strings.TrimSpace(raw.OwnerID)
	if orgRaw != "" && ownerRaw != "" {
		return nil, ErrAmbiguousOwnership
	}
	if orgRaw == "" && ownerRaw == "" {
		return nil, ErrMissingOwnership
	}

	doc := &FinancialDocument{
		Kind: kind,
		Counterparty: Counterparty{
			Name:  strings.TrimSpace(raw.CounterpartyName),
			Email: strings.ToLower(strings.TrimSpace(raw.CounterpartyMail)),
			Type:  strings.TrimSpace(raw.CounterpartyType),
		},
		Amount:         amount,
		Currency:       currency,
		Category:       strings.TrimSpace(raw.Category),
		DueDate:        raw.DueDate,
		ApprovalStatus: ApprovalStatusDraft,
		PaymentStatus:  PaymentStatusUnpaid,
		LedgerStatus:   LedgerStatusPending,
	}

	if orgRaw != "" {
		orgID, err := snowflake.ParseString(orgRaw)
		if err != nil {
			return nil, ErrMissingOwnership
		}
		doc.OrgID = &orgID
	} else {
		doc.OwnerID = &ownerRaw
	}

	if related := strings.TrimSpace(raw.RelatedInvoiceID); related != "" {
		id, err := snowflake.ParseString(related)
		if err == nil {
			doc.RelatedInvoiceID = &id
		}
	}
	if related := strings.TrimSpace(raw.RelatedPayableID); related != "" {
		id, err := snowflake.ParseString(related)
		if err == nil {
			doc.RelatedPayableID = &id
		}
	}

	return doc, nil
}
