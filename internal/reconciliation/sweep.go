// Package reconciliation heals drift between documents, approval workflows
// and ledger entries. Every pass is idempotent and tolerant of partial writes
// left behind by crashed requests: running the sweep twice converges to the
// same state.
package reconciliation

import (
	"context"
	"errors"
	"time"

	auditdomain "github.com/chriis-fr/global-sub005/internal/audit/domain"
	"github.com/chriis-fr/global-sub005/internal/clock"
	documentdomain "github.com/chriis-fr/global-sub005/internal/document/domain"
	ledgerdomain "github.com/chriis-fr/global-sub005/internal/ledgersync/domain"
	obsmetrics "github.com/chriis-fr/global-sub005/internal/observability/metrics"
	workflowdomain "github.com/chriis-fr/global-sub005/internal/workflow/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sweepLockKey = "reconciliation:sweep"

var (
	ErrSweepAlreadyRunning = errors.New("sweep_already_running")
	ErrUnknownPass         = errors.New("unknown_sweep_pass")
)

// Pass names accepted by Run, in execution order.
const (
	PassLinkWorkflows   = "link_workflows"
	PassRealignStatuses = "realign_statuses"
	PassMirrorPayables  = "mirror_payables"
	PassProjectEntries  = "project_entries"
	PassMirrorInvoices  = "mirror_invoices"
)

func validPass(pass string) bool {
	switch pass {
	case PassLinkWorkflows, PassRealignStatuses, PassMirrorPayables, PassProjectEntries, PassMirrorInvoices:
		return true
	}
	return false
}

// Report counts the corrections one sweep run made, per pass.
type Report struct {
	LinkedWorkflows   int `json:"linked_workflows"`
	RealignedStatuses int `json:"realigned_statuses"`
	MirroredPayables  int `json:"mirrored_payables"`
	ProjectedEntries  int `json:"projected_entries"`
	MirroredInvoices  int `json:"mirrored_invoices"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

func (r Report) Total() int {
	return r.LinkedWorkflows + r.RealignedStatuses + r.MirroredPayables + r.ProjectedEntries + r.MirroredInvoices
}

type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	DocumentRepo documentdomain.Repository
	WorkflowRepo workflowdomain.Repository
	Ledger       ledgerdomain.Service
	Audit        auditdomain.Service `optional:"true"`
	Locker       *Locker             `optional:"true"`
	Config       Config              `optional:"true"`
	Metrics      *obsmetrics.Metrics `optional:"true"`
}

type Sweeper struct {
	log          *zap.Logger
	clock        clock.Clock
	cfg          Config
	documentRepo documentdomain.Repository
	workflowRepo workflowdomain.Repository
	ledger       ledgerdomain.Service
	audit        auditdomain.Service
	locker       *Locker
	metrics      *obsmetrics.Metrics
}

func New(p Params) *Sweeper {
	return &Sweeper{
		log:          p.Log.Named("reconciliation.sweep"),
		clock:        p.Clock,
		cfg:          p.Config.withDefaults(),
		documentRepo: p.DocumentRepo,
		workflowRepo: p.WorkflowRepo,
		ledger:       p.Ledger,
		audit:        p.Audit,
		locker:       p.Locker,
		metrics:      p.Metrics,
	}
}

// RunOnce executes all passes in order under the cross-instance lock. When no
// lock backend is configured the sweep runs anyway; a single-instance
// deployment needs no lease.
func (s *Sweeper) RunOnce(ctx context.Context) (Report, error) {
	return s.Run(ctx, "")
}

// Run executes one named pass, or every pass in order when pass is empty.
// Passes are independently idempotent, so running one in isolation is safe.
func (s *Sweeper) Run(ctx context.Context, pass string) (Report, error) {
	var report Report
	if pass != "" && !validPass(pass) {
		return report, ErrUnknownPass
	}
	report.StartedAt = s.clock.Now()

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, sweepLockKey, s.cfg.LockTTL)
		if err != nil {
			return report, err
		}
		if !ok {
			return report, ErrSweepAlreadyRunning
		}
		defer func() {
			if err := s.locker.Release(ctx, sweepLockKey, token); err != nil {
				s.log.Warn("sweep lock release failed", zap.Error(err))
			}
		}()
	}

	runAll := pass == ""
	if runAll || pass == PassLinkWorkflows {
		report.LinkedWorkflows = s.linkOrphanWorkflows(ctx)
	}
	if runAll || pass == PassRealignStatuses {
		report.RealignedStatuses = s.realignStatuses(ctx)
	}
	if runAll || pass == PassMirrorPayables {
		report.MirroredPayables = s.mirrorPaid(ctx, false)
	}
	if runAll || pass == PassProjectEntries {
		report.ProjectedEntries = s.projectMissingEntries(ctx)
	}
	if runAll || pass == PassMirrorInvoices {
		report.MirroredInvoices = s.mirrorPaid(ctx, true)
	}
	report.FinishedAt = s.clock.Now()

	s.metrics.RecordSweepCorrections("link_workflows", report.LinkedWorkflows)
	s.metrics.RecordSweepCorrections("realign_statuses", report.RealignedStatuses)
	s.metrics.RecordSweepCorrections("mirror_payables", report.MirroredPayables)
	s.metrics.RecordSweepCorrections("project_entries", report.ProjectedEntries)
	s.metrics.RecordSweepCorrections("mirror_invoices", report.MirroredInvoices)

	if report.Total() > 0 {
		s.log.Info("sweep corrected drift",
			zap.Int("linked_workflows", report.LinkedWorkflows),
			zap.Int("realigned_statuses", report.RealignedStatuses),
			zap.Int("mirrored_payables", report.MirroredPayables),
			zap.Int("projected_entries", report.ProjectedEntries),
			zap.Int("mirrored_invoices", report.MirroredInvoices),
		)
		s.auditReport(ctx, report)
	}
	return report, nil
}

// linkOrphanWorkflows backfills the document-side back-link for workflows
// whose document never recorded one.
func (s *Sweeper) linkOrphanWorkflows(ctx context.Context) int {
	workflows, err := s.workflowRepo.ListAll(ctx)
	if err != nil {
		s.log.Warn("workflow scan failed", zap.Error(err))
		return 0
	}

	fixed := 0
	for i := range workflows {
		wf := &workflows[i]
		doc, err := s.documentRepo.Get(ctx, wf.DocumentID)
		if err != nil {
			continue
		}
		if doc.WorkflowID != nil {
			continue
		}
		if err := s.documentRepo.SetWorkflowID(ctx, doc.ID, wf.ID); err != nil {
			s.log.Warn("workflow back-link repair failed",
				zap.String("document_id", doc.ID.String()), zap.Error(err))
			continue
		}
		fixed++
	}
	return fixed
}

// realignStatuses recomputes each document's approval status from its
// workflow and corrects documents a crashed propagation left behind.
func (s *Sweeper) realignStatuses(ctx context.Context) int {
	docs, err := s.documentRepo.ListAll(ctx)
	if err != nil {
		s.log.Warn("document scan failed", zap.Error(err))
		return 0
	}

	fixed := 0
	for i := range docs {
		changed, err := s.ledger.SyncDocumentStatusTwoWay(ctx, &docs[i])
		if err != nil {
			s.log.Warn("status realign failed",
				zap.String("document_id", docs[i].ID.String()), zap.Error(err))
			continue
		}
		if changed {
			fixed++
		}
	}
	return fixed
}

// mirrorPaid replays the paid mirror for documents whose linked counterpart
// missed the original payment write. The receivable flag selects which side
// of the link this pass walks.
func (s *Sweeper) mirrorPaid(ctx context.Context, receivable bool) int {
	docs, err := s.documentRepo.ListAll(ctx)
	if err != nil {
		s.log.Warn("document scan failed", zap.Error(err))
		return 0
	}

	fixed := 0
	for i := range docs {
		doc := &docs[i]
		if doc.Receivable() != receivable || doc.PaymentStatus != documentdomain.PaymentStatusPaid {
			continue
		}
		if !s.counterpartUnpaid(ctx, doc) {
			continue
		}
		if err := s.ledger.MarkPaid(ctx, doc.ID); err != nil {
			s.log.Warn("paid mirror repair failed",
				zap.String("document_id", doc.ID.String()), zap.Error(err))
			continue
		}
		fixed++
	}
	return fixed
}

func (s *Sweeper) counterpartUnpaid(ctx context.Context, doc *documentdomain.FinancialDocument) bool {
	check := func(d *documentdomain.FinancialDocument, err error) bool {
		return err == nil && d != nil && d.PaymentStatus != documentdomain.PaymentStatusPaid
	}
	if doc.RelatedInvoiceID != nil {
		if check(s.documentRepo.Get(ctx, *doc.RelatedInvoiceID)) {
			return true
		}
	}
	if doc.RelatedPayableID != nil {
		if check(s.documentRepo.Get(ctx, *doc.RelatedPayableID)) {
			return true
		}
	}
	if doc.Receivable() {
		return check(s.documentRepo.FindByRelatedInvoice(ctx, doc.ID))
	}
	return check(s.documentRepo.FindByRelatedPayable(ctx, doc.ID))
}

// projectMissingEntries retries the ledger projection for documents still
// marked pending. This is the retry path for failed secondary syncs.
func (s *Sweeper) projectMissingEntries(ctx context.Context) int {
	docs, err := s.documentRepo.ListLedgerPending(ctx, 0)
	if err != nil {
		s.log.Warn("pending-ledger scan failed", zap.Error(err))
		return 0
	}

	fixed := 0
	for i := range docs {
		doc := &docs[i]
		switch doc.ApprovalStatus {
		case documentdomain.ApprovalStatusApproved, documentdomain.ApprovalStatusPaid:
		default:
			continue
		}
		if err := s.ledger.SyncDocumentToLedger(ctx, doc); err != nil {
			s.log.Warn("ledger projection retry failed",
				zap.String("document_id", doc.ID.String()), zap.Error(err))
			continue
		}
		fixed++
	}
	return fixed
}

func (s *Sweeper) auditReport(ctx context.Context, report Report) {
	if s.audit == nil {
		return
	}
	err := s.audit.AuditLog(ctx, nil, "system", nil, "reconciliation.sweep", "reconciliation", nil, map[string]any{
		"linked_workflows":   report.LinkedWorkflows,
		"realigned_statuses": report.RealignedStatuses,
		"mirrored_payables":  report.MirroredPayables,
		"projected_entries":  report.ProjectedEntries,
		"mirrored_invoices":  report.MirroredInvoices,
	})
	if err != nil {
		s.log.Warn("sweep audit write failed", zap.Error(err))
	}
}

// RunForever runs the sweep on a fixed interval until the context ends.
func (s *Sweeper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrSweepAlreadyRunning) {
			s.log.Warn("sweep run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
