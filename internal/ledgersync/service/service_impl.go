package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/chriis-fr/global-sub005/internal/clock"
	documentdomain "github.com/chriis-fr/global-sub005/internal/document/domain"
	"github.com/chriis-fr/global-sub005/internal/ledgersync/domain"
	obsmetrics "github.com/chriis-fr/global-sub005/internal/observability/metrics"
	workflowdomain "github.com/chriis-fr/global-sub005/internal/workflow/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	GenID        *snowflake.Node
	Repo         domain.Repository
	DocumentRepo documentdomain.Repository
	WorkflowRepo workflowdomain.Repository
	Metrics      *obsmetrics.Metrics `optional:"true"`
}

type service struct {
	log          *zap.Logger
	clock        clock.Clock
	genID        *snowflake.Node
	repo         domain.Repository
	documentRepo documentdomain.Repository
	workflowRepo workflowdomain.Repository
	metrics      *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &service{
		log:          p.Log.Named("ledgersync.service"),
		clock:        p.Clock,
		genID:        p.GenID,
		repo:         p.Repo,
		documentRepo: p.DocumentRepo,
		workflowRepo: p.WorkflowRepo,
		metrics:      p.Metrics,
	}
}

func (s *service) SyncDocumentToLedger(ctx context.Context, doc *documentdomain.FinancialDocument) error {
	existing, err := s.entryFor(ctx, doc)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if existing != nil {
		// Entry already there; just make sure the document marker agrees.
		if doc.LedgerStatus != documentdomain.LedgerStatusSynced {
			if err := s.documentRepo.SetLedgerStatus(ctx, doc.ID, documentdomain.LedgerStatusSynced); err != nil {
				return err
			}
			doc.LedgerStatus = documentdomain.LedgerStatusSynced
		}
		return nil
	}

	entryType := domain.EntryTypePayable
	if doc.Receivable() {
		entryType = domain.EntryTypeReceivable
	}
	scope := domain.Scope{OrgID: doc.OrgID, OwnerID: doc.OwnerID}
	entryID, err := s.nextEntryID(ctx, scope, entryType)
	if err != nil {
		return err
	}

	entry := domain.LedgerEntry{
		ID:           s.genID.Generate(),
		EntryID:      entryID,
		Type:         entryType,
		OrgID:        doc.OrgID,
		OwnerID:      doc.OwnerID,
		Amount:       doc.Amount,
		Currency:     doc.Currency,
		Status:       entryStatusFor(doc),
		Counterparty: doc.Counterparty,
		CreatedAt:    s.clock.Now(),
	}
	if doc.Receivable() {
		docID := doc.ID
		entry.RelatedInvoiceID = &docID
		entry.RelatedPayableID = doc.RelatedPayableID
	} else {
		docID := doc.ID
		entry.RelatedPayableID = &docID
		entry.RelatedInvoiceID = doc.RelatedInvoiceID
	}

	if err := s.repo.Create(ctx, &entry); err != nil {
		return err
	}
	if err := s.documentRepo.SetLedgerStatus(ctx, doc.ID, documentdomain.LedgerStatusSynced); err != nil {
		return err
	}
	doc.LedgerStatus = documentdomain.LedgerStatusSynced
	s.metrics.RecordLedgerEntry(string(entryType))

	s.log.Info("ledger entry created",
		zap.String("entry_id", entry.EntryID),
		zap.String("type", string(entry.Type)),
		zap.String("document_id", doc.ID.String()),
	)
	return nil
}

func (s *service) PropagateStatus(ctx context.Context, workflowID snowflake.ID) error {
	wf, err := s.workflowRepo.Get(ctx, workflowID)
	if err != nil {
		if errors.Is(err, workflowdomain.ErrNotFound) {
			return domain.ErrWorkflowNotFound
		}
		return err
	}
	doc, err := s.documentRepo.Get(ctx, wf.DocumentID)
	if err != nil {
		return err
	}

	// Terminal document states win over anything the workflow says.
	if doc.ApprovalStatus == documentdomain.ApprovalStatusPaid ||
		doc.ApprovalStatus == documentdomain.ApprovalStatusCanceled {
		return nil
	}

	target := approvalStatusFor(wf.Status)
	if doc.ApprovalStatus != target {
		if err := s.documentRepo.SetApprovalStatus(ctx, doc.ID, target); err != nil {
			return err
		}
		doc.ApprovalStatus = target
	}

	if target == documentdomain.ApprovalStatusApproved {
		// Projection failure is secondary: the approval stands and the sweep
		// retries while the document stays marked pending.
		if err := s.SyncDocumentToLedger(ctx, doc); err != nil {
			s.log.Warn("ledger projection failed after approval",
				zap.String("document_id", doc.ID.String()),
				zap.Error(err),
			)
			return nil
		}
	}

	return s.mirrorEntryStatus(ctx, doc)
}

func (s *service) MarkPaid(ctx context.Context, documentID snowflake.ID) error {
	doc, err := s.documentRepo.Get(ctx, documentID)
	if err != nil {
		return err
	}

	changed, err := s.documentRepo.MarkPaid(ctx, doc.ID)
	if err != nil {
		return err
	}
	doc.ApprovalStatus = documentdomain.ApprovalStatusPaid
	doc.PaymentStatus = documentdomain.PaymentStatusPaid
	if changed {
		s.log.Info("document marked paid", zap.String("document_id", doc.ID.String()))
	}

	if err := s.mirrorEntryStatus(ctx, doc); err != nil {
		s.log.Warn("ledger entry status mirror failed",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err),
		)
	}

	// Mirror onto linked counterparts in both directions. Re-running after a
	// partial failure converges because every write is forward-only.
	for _, counterpart := range s.counterparts(ctx, doc) {
		if counterpart.PaymentStatus == documentdomain.PaymentStatusPaid {
			continue
		}
		if _, err := s.documentRepo.MarkPaid(ctx, counterpart.ID); err != nil {
			s.log.Warn("counterpart paid mirror failed",
				zap.String("document_id", counterpart.ID.String()),
				zap.Error(err),
			)
			continue
		}
		counterpart.ApprovalStatus = documentdomain.ApprovalStatusPaid
		counterpart.PaymentStatus = documentdomain.PaymentStatusPaid
		if err := s.mirrorEntryStatus(ctx, counterpart); err != nil {
			s.log.Warn("counterpart ledger mirror failed",
				zap.String("document_id", counterpart.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *service) SyncDocumentStatusTwoWay(ctx context.Context, doc *documentdomain.FinancialDocument) (bool, error) {
	if doc.ApprovalStatus == documentdomain.ApprovalStatusPaid ||
		doc.ApprovalStatus == documentdomain.ApprovalStatusCanceled {
		return false, nil
	}

	wf, err := s.workflowRepo.GetByDocument(ctx, doc.ID)
	if err != nil {
		if errors.Is(err, workflowdomain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	expected := approvalStatusFor(wf.Status)
	if doc.ApprovalStatus == expected {
		return false, nil
	}
	if err := s.documentRepo.SetApprovalStatus(ctx, doc.ID, expected); err != nil {
		return false, err
	}
	doc.ApprovalStatus = expected
	s.log.Info("document status realigned with workflow",
		zap.String("document_id", doc.ID.String()),
		zap.String("workflow_id", wf.ID.String()),
		zap.String("status", string(expected)),
	)
	return true, nil
}

// counterparts collects linked documents through both the direct references
// and the reverse lookups.
func (s *service) counterparts(ctx context.Context, doc *documentdomain.FinancialDocument) []*documentdomain.FinancialDocument {
	seen := map[snowflake.ID]bool{doc.ID: true}
	var out []*documentdomain.FinancialDocument

	add := func(d *documentdomain.FinancialDocument, err error) {
		if err != nil || d == nil || seen[d.ID] {
			return
		}
		seen[d.ID] = true
		out = append(out, d)
	}

	if doc.RelatedInvoiceID != nil {
		add(s.documentRepo.Get(ctx, *doc.RelatedInvoiceID))
	}
	if doc.RelatedPayableID != nil {
		add(s.documentRepo.Get(ctx, *doc.RelatedPayableID))
	}
	if doc.Receivable() {
		add(s.documentRepo.FindByRelatedInvoice(ctx, doc.ID))
	} else {
		add(s.documentRepo.FindByRelatedPayable(ctx, doc.ID))
	}
	return out
}

func (s *service) entryFor(ctx context.Context, doc *documentdomain.FinancialDocument) (*domain.LedgerEntry, error) {
	if doc.Receivable() {
		return s.repo.FindByInvoice(ctx, doc.ID)
	}
	return s.repo.FindByPayable(ctx, doc.ID)
}

func (s *service) mirrorEntryStatus(ctx context.Context, doc *documentdomain.FinancialDocument) error {
	entry, err := s.entryFor(ctx, doc)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	status := entryStatusFor(doc)
	if entry.Status == status {
		return nil
	}
	return s.repo.SetStatus(ctx, entry.ID, status)
}

func entryStatusFor(doc *documentdomain.FinancialDocument) string {
	if doc.PaymentStatus == documentdomain.PaymentStatusPaid {
		return string(documentdomain.ApprovalStatusPaid)
	}
	return string(doc.ApprovalStatus)
}

func approvalStatusFor(status workflowdomain.Status) documentdomain.ApprovalStatus {
	switch status {
	case workflowdomain.StatusApproved:
		return documentdomain.ApprovalStatusApproved
	case workflowdomain.StatusRejected:
		return documentdomain.ApprovalStatusRejected
	default:
		return documentdomain.ApprovalStatusPending
	}
}
