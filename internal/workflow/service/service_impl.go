package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	settingsdomain "github.com/chriis-fr/global-sub005/internal/approvalsettings/domain"
	auditdomain "github.com/chriis-fr/global-sub005/internal/audit/domain"
	"github.com/chriis-fr/global-sub005/internal/clock"
	documentdomain "github.com/chriis-fr/global-sub005/internal/document/domain"
	ledgerdomain "github.com/chriis-fr/global-sub005/internal/ledgersync/domain"
	"github.com/chriis-fr/global-sub005/internal/notification"
	obsmetrics "github.com/chriis-fr/global-sub005/internal/observability/metrics"
	orgdomain "github.com/chriis-fr/global-sub005/internal/organization/domain"
	"github.com/chriis-fr/global-sub005/internal/permission"
	"github.com/chriis-fr/global-sub005/internal/workflow/domain"
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
	Settings     settingsdomain.Service
	Orgs         orgdomain.Service
	Ledger       ledgerdomain.Service
	Audit        auditdomain.Service     `optional:"true"`
	Notifier     notification.Dispatcher `optional:"true"`
	Metrics      *obsmetrics.Metrics     `optional:"true"`
}

type service struct {
	log          *zap.Logger
	clock        clock.Clock
	genID        *snowflake.Node
	repo         domain.Repository
	documentRepo documentdomain.Repository
	settings     settingsdomain.Service
	orgs         orgdomain.Service
	ledger       ledgerdomain.Service
	audit        auditdomain.Service
	notifier     notification.Dispatcher
	metrics      *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	notifier := p.Notifier
	if notifier == nil {
		notifier = notification.NoOpDispatcher{}
	}
	return &service{
		log:          p.Log.Named("workflow.service"),
		clock:        p.Clock,
		genID:        p.GenID,
		repo:         p.Repo,
		documentRepo: p.DocumentRepo,
		settings:     p.Settings,
		orgs:         p.Orgs,
		ledger:       p.Ledger,
		audit:        p.Audit,
		notifier:     notifier,
		metrics:      p.Metrics,
	}
}

func (s *service) Create(ctx context.Context, doc *documentdomain.FinancialDocument, submitter domain.Actor) (*domain.ApprovalWorkflow, error) {
	if doc.ApprovalStatus != documentdomain.ApprovalStatusDraft {
		return nil, domain.ErrInvalidState
	}

	// Individually-owned documents have no organization policy to consult;
	// they go straight to approved.
	if doc.OrgID == nil {
		return nil, s.approveDirectly(ctx, doc, submitter)
	}
	orgID := *doc.OrgID

	member, err := s.orgs.Member(ctx, orgID, submitter.UserID)
	if err != nil {
		return nil, domain.ErrPermissionDenied
	}
	if !permission.Evaluate(member, permission.ActionCreateBills) {
		return nil, domain.ErrPermissionDenied
	}

	settings, err := s.settings.Effective(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if !settings.RequireApproval {
		return nil, s.approveDirectly(ctx, doc, submitter)
	}

	if autoApproveMatches(settings, doc) {
		return s.autoApprove(ctx, doc, orgID, submitter)
	}

	tier := settings.Tier(doc.Amount)
	required := settings.StepsForTier(tier)
	if required < 1 {
		required = 1
	}
	approvers, err := s.resolveApprovers(ctx, orgID, settings, required)
	if err != nil {
		return nil, err
	}

	// The guarded draft->pending transition is what makes double submission
	// lose: the second caller sees zero rows updated.
	if err := s.documentRepo.TransitionApprovalStatus(ctx, doc.ID,
		documentdomain.ApprovalStatusDraft, documentdomain.ApprovalStatusPending); err != nil {
		if errors.Is(err, documentdomain.ErrInvalidState) {
			return nil, domain.ErrInvalidState
		}
		return nil, err
	}
	doc.ApprovalStatus = documentdomain.ApprovalStatusPending

	now := s.clock.Now()
	wf := domain.ApprovalWorkflow{
		ID:          s.genID.Generate(),
		DocumentID:  doc.ID,
		OrgID:       orgID,
		SubmittedBy: submitter.UserID,
		Amount:      doc.Amount,
		Status:      domain.StatusPending,
		CurrentStep: 1,
		TotalSteps:  len(approvers),
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	steps := make([]domain.ApprovalStep, 0, len(approvers))
	for i, email := range approvers {
		steps = append(steps, domain.ApprovalStep{
			ID:            s.genID.Generate(),
			WorkflowID:    wf.ID,
			StepNumber:    i + 1,
			ApproverEmail: email,
			Status:        domain.StepStatusPending,
			CreatedAt:     now,
		})
	}
	if err := s.repo.Create(ctx, &wf, steps); err != nil {
		return nil, err
	}
	if err := s.documentRepo.SetWorkflowID(ctx, doc.ID, wf.ID); err != nil {
		s.log.Warn("workflow back-link write failed",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
	}

	s.metrics.RecordWorkflowTransition("submitted")
	s.notifyApprover(ctx, doc, &wf, steps[0])
	s.auditLog(ctx, &orgID, submitter, "workflow.submitted", wf.ID, map[string]any{
		"document_id": doc.ID.String(),
		"tier":        string(tier),
		"total_steps": wf.TotalSteps,
	})

	s.log.Info("approval workflow created",
		zap.String("workflow_id", wf.ID.String()),
		zap.String("document_id", doc.ID.String()),
		zap.String("tier", string(tier)),
		zap.Int("total_steps", wf.TotalSteps),
	)
	return &wf, nil
}

func (s *service) Decide(ctx context.Context, workflowID snowflake.ID, actor domain.Actor, decision domain.Decision, reason string) (*domain.ApprovalWorkflow, error) {
	if decision != domain.DecisionApprove && decision != domain.DecisionReject {
		return nil, domain.ErrInvalidDecision
	}

	wf, err := s.repo.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.Status != domain.StatusPending {
		return nil, domain.ErrInvalidState
	}

	member, err := s.orgs.Member(ctx, wf.OrgID, actor.UserID)
	if err != nil {
		return nil, domain.ErrPermissionDenied
	}
	if !permission.Evaluate(member, permission.ActionApproveBills) {
		return nil, domain.ErrPermissionDenied
	}

	step, err := s.repo.Step(ctx, wf.ID, wf.CurrentStep)
	if err != nil {
		return nil, err
	}
	// Capability is not assignment: even an admin may only decide a step
	// naming them as the approver. A mismatch is a state error, not a
	// permission one; the actor may well be the approver of a later step.
	if !strings.EqualFold(step.ApproverEmail, actor.Email) {
		return nil, domain.ErrInvalidState
	}
	if step.Status != domain.StepStatusPending {
		return nil, domain.ErrInvalidState
	}

	now := s.clock.Now()
	stepStatus := domain.StepStatusApproved
	if decision == domain.DecisionReject {
		stepStatus = domain.StepStatusRejected
	}
	if err := s.repo.DecideStep(ctx, step.ID, stepStatus, now, reason); err != nil {
		return nil, err
	}

	switch {
	case decision == domain.DecisionReject:
		if err := s.repo.Finish(ctx, wf.ID, wf.CurrentStep, domain.StatusRejected); err != nil {
			return nil, err
		}
		wf.Status = domain.StatusRejected
	case wf.CurrentStep >= wf.TotalSteps:
		if err := s.repo.Finish(ctx, wf.ID, wf.CurrentStep, domain.StatusApproved); err != nil {
			return nil, err
		}
		wf.Status = domain.StatusApproved
	default:
		if err := s.repo.Advance(ctx, wf.ID, wf.CurrentStep); err != nil {
			return nil, err
		}
		wf.CurrentStep++
	}
	wf.UpdatedAt = now

	switch wf.Status {
	case domain.StatusApproved:
		s.metrics.RecordWorkflowTransition("approved")
	case domain.StatusRejected:
		s.metrics.RecordWorkflowTransition("rejected")
	default:
		s.metrics.RecordWorkflowTransition("advanced")
	}

	if err := s.ledger.PropagateStatus(ctx, wf.ID); err != nil {
		s.log.Warn("status propagation failed after decision",
			zap.String("workflow_id", wf.ID.String()), zap.Error(err))
	}

	s.auditLog(ctx, &wf.OrgID, actor, "workflow."+string(decision), wf.ID, map[string]any{
		"step":   step.StepNumber,
		"reason": reason,
		"status": string(wf.Status),
	})

	if wf.Status.Terminal() {
		s.notifySubmitter(ctx, wf, reason)
	} else if next, err := s.repo.Step(ctx, wf.ID, wf.CurrentStep); err == nil {
		if doc, derr := s.documentRepo.Get(ctx, wf.DocumentID); derr == nil {
			s.notifyApprover(ctx, doc, wf, *next)
		}
	}

	s.log.Info("workflow decision recorded",
		zap.String("workflow_id", wf.ID.String()),
		zap.String("decision", string(decision)),
		zap.Int("step", step.StepNumber),
		zap.String("status", string(wf.Status)),
	)
	return wf, nil
}

func (s *service) Get(ctx context.Context, workflowID snowflake.ID) (*domain.ApprovalWorkflow, []domain.ApprovalStep, error) {
	wf, err := s.repo.Get(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}
	steps, err := s.repo.Steps(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}
	return wf, steps, nil
}

// approveDirectly is the no-workflow path: the document is approved in place
// and projected to the ledger without any workflow row.
func (s *service) approveDirectly(ctx context.Context, doc *documentdomain.FinancialDocument, submitter domain.Actor) error {
	err := s.documentRepo.TransitionApprovalStatus(ctx, doc.ID,
		documentdomain.ApprovalStatusDraft, documentdomain.ApprovalStatusApproved)
	if err != nil {
		if errors.Is(err, documentdomain.ErrInvalidState) {
			return domain.ErrInvalidState
		}
		return err
	}
	doc.ApprovalStatus = documentdomain.ApprovalStatusApproved

	if err := s.ledger.SyncDocumentToLedger(ctx, doc); err != nil {
		s.log.Warn("ledger projection failed after direct approval",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
	}
	s.metrics.RecordWorkflowTransition("approved_directly")
	s.auditLog(ctx, doc.OrgID, submitter, "workflow.approved_directly", doc.ID, map[string]any{
		"document_id": doc.ID.String(),
	})
	return nil
}

func (s *service) autoApprove(ctx context.Context, doc *documentdomain.FinancialDocument, orgID snowflake.ID, submitter domain.Actor) (*domain.ApprovalWorkflow, error) {
	if err := s.documentRepo.TransitionApprovalStatus(ctx, doc.ID,
		documentdomain.ApprovalStatusDraft, documentdomain.ApprovalStatusApproved); err != nil {
		if errors.Is(err, documentdomain.ErrInvalidState) {
			return nil, domain.ErrInvalidState
		}
		return nil, err
	}
	doc.ApprovalStatus = documentdomain.ApprovalStatusApproved

	now := s.clock.Now()
	wf := domain.ApprovalWorkflow{
		ID:          s.genID.Generate(),
		DocumentID:  doc.ID,
		OrgID:       orgID,
		SubmittedBy: submitter.UserID,
		Amount:      doc.Amount,
		Status:      domain.StatusApproved,
		CurrentStep: 0,
		TotalSteps:  0,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, &wf, nil); err != nil {
		return nil, err
	}
	if err := s.documentRepo.SetWorkflowID(ctx, doc.ID, wf.ID); err != nil {
		s.log.Warn("workflow back-link write failed",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
	}

	if err := s.ledger.SyncDocumentToLedger(ctx, doc); err != nil {
		s.log.Warn("ledger projection failed after auto-approval",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
	}
	s.metrics.RecordWorkflowTransition("auto_approved")
	s.auditLog(ctx, &orgID, submitter, "workflow.auto_approved", wf.ID, map[string]any{
		"document_id": doc.ID.String(),
		"amount":      doc.Amount,
	})

	s.log.Info("document auto-approved",
		zap.String("workflow_id", wf.ID.String()),
		zap.String("document_id", doc.ID.String()),
	)
	return &wf, nil
}

// resolveApprovers fills the required step slots with organization approver
// candidates in join order, then cycles through the configured fallback
// approvers for any remaining slots.
func (s *service) resolveApprovers(ctx context.Context, orgID snowflake.ID, settings settingsdomain.Settings, required int) ([]string, error) {
	candidates, err := s.orgs.ApproverCandidates(ctx, orgID)
	if err != nil {
		return nil, err
	}

	emails := make([]string, 0, required)
	seen := map[string]bool{}
	for _, c := range candidates {
		email := strings.ToLower(strings.TrimSpace(c.Email))
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		emails = append(emails, email)
		if len(emails) == required {
			return emails, nil
		}
	}

	fallback := make([]string, 0, len(settings.FallbackApprovers))
	for _, f := range settings.FallbackApprovers {
		email := strings.ToLower(strings.TrimSpace(f))
		if email != "" {
			fallback = append(fallback, email)
		}
	}
	if len(emails) == 0 && len(fallback) == 0 {
		return nil, domain.ErrNoApprovers
	}
	for i := 0; len(emails) < required; i++ {
		if len(fallback) == 0 {
			// Fewer distinct approvers than required slots: reuse candidates
			// round-robin rather than refusing the submission.
			emails = append(emails, emails[i%len(emails)])
			continue
		}
		emails = append(emails, fallback[i%len(fallback)])
	}
	return emails, nil
}

func autoApproveMatches(settings settingsdomain.Settings, doc *documentdomain.FinancialDocument) bool {
	auto := settings.AutoApprove
	if !auto.Enabled {
		return false
	}
	// An unset condition matches everything.
	if auto.Conditions.AmountLimit > 0 && doc.Amount > auto.Conditions.AmountLimit {
		return false
	}
	if !whitelistMatches(auto.Conditions.VendorWhitelist, doc.Counterparty.Name) {
		return false
	}
	return whitelistMatches(auto.Conditions.CategoryWhitelist, doc.Category)
}

func whitelistMatches(whitelist []string, value string) bool {
	if len(whitelist) == 0 {
		return true
	}
	for _, entry := range whitelist {
		if strings.EqualFold(strings.TrimSpace(entry), strings.TrimSpace(value)) {
			return true
		}
	}
	return false
}

func (s *service) notifyApprover(ctx context.Context, doc *documentdomain.FinancialDocument, wf *domain.ApprovalWorkflow, step domain.ApprovalStep) {
	err := s.notifier.SendApprovalRequest(ctx, notification.ApprovalRequest{
		ApproverEmail: step.ApproverEmail,
		DocumentID:    doc.ID.String(),
		EntryLabel:    string(doc.Kind),
		Amount:        doc.Amount,
		Currency:      doc.Currency,
		Counterparty:  doc.Counterparty.Name,
		StepNumber:    step.StepNumber,
		TotalSteps:    wf.TotalSteps,
	})
	if err != nil {
		s.log.Warn("approval request notification failed",
			zap.String("workflow_id", wf.ID.String()),
			zap.String("approver", step.ApproverEmail),
			zap.Error(err),
		)
	}
}

func (s *service) notifySubmitter(ctx context.Context, wf *domain.ApprovalWorkflow, reason string) {
	member, err := s.orgs.Member(ctx, wf.OrgID, wf.SubmittedBy)
	if err != nil || member.Email == "" {
		return
	}
	err = s.notifier.SendDecisionNotice(ctx, notification.DecisionNotice{
		SubmitterEmail: member.Email,
		DocumentID:     wf.DocumentID.String(),
		Approved:       wf.Status == domain.StatusApproved,
		Reason:         reason,
	})
	if err != nil {
		s.log.Warn("decision notice failed",
			zap.String("workflow_id", wf.ID.String()), zap.Error(err))
	}
}

func (s *service) auditLog(ctx context.Context, orgID *snowflake.ID, actor domain.Actor, action string, targetID snowflake.ID, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	actorID := actor.UserID
	target := targetID.String()
	if err := s.audit.AuditLog(ctx, orgID, "user", &actorID, action, "approval_workflow", &target, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
