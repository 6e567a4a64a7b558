package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	settingsdomain "github.com/chriis-fr/global-sub005/internal/approvalsettings/domain"
	settingsrepo "github.com/chriis-fr/global-sub005/internal/approvalsettings/repository"
	settingssvc "github.com/chriis-fr/global-sub005/internal/approvalsettings/service"
	"github.com/chriis-fr/global-sub005/internal/clock"
	documentdomain "github.com/chriis-fr/global-sub005/internal/document/domain"
	documentrepo "github.com/chriis-fr/global-sub005/internal/document/repository"
	ledgerdomain "github.com/chriis-fr/global-sub005/internal/ledgersync/domain"
	ledgerrepo "github.com/chriis-fr/global-sub005/internal/ledgersync/repository"
	ledgersvc "github.com/chriis-fr/global-sub005/internal/ledgersync/service"
	"github.com/chriis-fr/global-sub005/internal/notification"
	orgdomain "github.com/chriis-fr/global-sub005/internal/organization/domain"
	orgrepo "github.com/chriis-fr/global-sub005/internal/organization/repository"
	orgsvc "github.com/chriis-fr/global-sub005/internal/organization/service"
	"github.com/chriis-fr/global-sub005/internal/workflow/domain"
	wfrepo "github.com/chriis-fr/global-sub005/internal/workflow/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingDispatcher struct {
	requests []notification.ApprovalRequest
	notices  []notification.DecisionNotice
}

func (d *recordingDispatcher) SendApprovalRequest(ctx context.Context, req notification.ApprovalRequest) error {
	d.requests = append(d.requests, req)
	return nil
}

func (d *recordingDispatcher) SendDecisionNotice(ctx context.Context, notice notification.DecisionNotice) error {
	d.notices = append(d.notices, notice)
	return nil
}

type fixture struct {
	node       *snowflake.Node
	clk        *clock.FakeClock
	docs       documentdomain.Repository
	orgs       orgdomain.Service
	settings   settingsdomain.Service
	ledgerRepo ledgerdomain.Repository
	workflows  domain.Service
	wfRepo     domain.Repository
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&orgdomain.OrganizationMember{},
		&settingsdomain.OrgApprovalSettings{},
		&documentdomain.FinancialDocument{},
		&domain.ApprovalWorkflow{},
		&domain.ApprovalStep{},
		&ledgerdomain.LedgerEntry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	docs := documentrepo.Provide(db)
	orgs := orgsvc.NewService(db, log, orgrepo.Provide(db), node)
	settings := settingssvc.NewService(settingssvc.Params{Log: log, Repo: settingsrepo.Provide(db)})
	lrepo := ledgerrepo.Provide(db)
	wrepo := wfrepo.Provide(db)
	ledger := ledgersvc.NewService(ledgersvc.Params{
		Log: log, Clock: clk, GenID: node,
		Repo: lrepo, DocumentRepo: docs, WorkflowRepo: wrepo,
	})
	dispatcher := &recordingDispatcher{}
	workflows := NewService(Params{
		Log: log, Clock: clk, GenID: node,
		Repo: wrepo, DocumentRepo: docs,
		Settings: settings, Orgs: orgs, Ledger: ledger,
		Notifier: dispatcher,
	})

	return &fixture{
		node: node, clk: clk, docs: docs, orgs: orgs, settings: settings,
		ledgerRepo: lrepo, workflows: workflows, wfRepo: wrepo, dispatcher: dispatcher,
	}
}

// newOrg provisions an organization with an owner, one accountant submitter
// and two approvers.
func (f *fixture) newOrg(t *testing.T) (snowflake.ID, domain.Actor) {
	t.Helper()
	ctx := context.Background()
	org, err := f.orgs.Create(ctx, "user-owner", "owner@acme.test", orgdomain.CreateOrganizationRequest{Name: "Acme"})
	require.NoError(t, err)

	_, err = f.orgs.AddMember(ctx, org.ID, orgdomain.AddMemberRequest{
		UserID: "user-sub", Email: "submitter@acme.test", Role: orgdomain.RoleAccountant,
	})
	require.NoError(t, err)
	_, err = f.orgs.AddMember(ctx, org.ID, orgdomain.AddMemberRequest{
		UserID: "user-appr1", Email: "approver1@acme.test", Role: orgdomain.RoleApprover,
	})
	require.NoError(t, err)
	_, err = f.orgs.AddMember(ctx, org.ID, orgdomain.AddMemberRequest{
		UserID: "user-appr2", Email: "approver2@acme.test", Role: orgdomain.RoleApprover,
	})
	require.NoError(t, err)

	return org.ID, domain.Actor{UserID: "user-sub", Email: "submitter@acme.test"}
}

func (f *fixture) setSettings(t *testing.T, orgID snowflake.ID, mutate func(*settingsdomain.Settings)) {
	t.Helper()
	s := settingsdomain.Settings{
		RequireApproval: true,
		ApprovalRules: settingsdomain.ApprovalRules{
			AmountThresholds:  settingsdomain.AmountThresholds{Low: 1_000, Medium: 10_000, High: 100_000},
			RequiredApprovers: settingsdomain.RequiredApprovers{Low: 1, Medium: 2, High: 3},
		},
		FallbackApprovers: []string{"cfo@acme.test"},
	}
	if mutate != nil {
		mutate(&s)
	}
	require.NoError(t, f.settings.Set(context.Background(), orgID, s))
}

func (f *fixture) newBill(t *testing.T, orgID snowflake.ID, amount int64) *documentdomain.FinancialDocument {
	t.Helper()
	doc := &documentdomain.FinancialDocument{
		ID:             f.node.Generate(),
		Kind:           documentdomain.KindBill,
		OrgID:          &orgID,
		Counterparty:   documentdomain.Counterparty{Name: "Globex", Email: "billing@globex.test", Type: "vendor"},
		Amount:         amount,
		Currency:       "USD",
		Category:       "software",
		ApprovalStatus: documentdomain.ApprovalStatusDraft,
		PaymentStatus:  documentdomain.PaymentStatusUnpaid,
		LedgerStatus:   documentdomain.LedgerStatusPending,
		SubmittedBy:    "user-sub",
		CreatedAt:      f.clk.Now(),
		UpdatedAt:      f.clk.Now(),
	}
	require.NoError(t, f.docs.Create(context.Background(), doc))
	return doc
}

func TestSubmitWithoutApprovalRequirementApprovesDirectly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID, submitter := f.newOrg(t)
	f.setSettings(t, orgID, func(s *settingsdomain.Settings) { s.RequireApproval = false })

	doc := f.newBill(t, orgID, 5_000)
	wf, err := f.workflows.Create(ctx, doc, submitter)
	require.NoError(t, err)
	assert.Nil(t, wf)

	got, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documentdomain.ApprovalStatusApproved, got.ApprovalStatus)
	assert.Equal(t, documentdomain.LedgerStatusSynced, got.LedgerStatus)

	entry, err := f.ledgerRepo.FindByPayable(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAY-202609-0001", entry.EntryID)
	assert.Equal(t, ledgerdomain.EntryTypePayable, entry.Type)
}

func TestSubmitCreatesTieredWorkflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID, submitter := f.newOrg(t)
	f.setSettings(t, orgID, nil)

	cases := []struct {
		amount int64
		steps  int
	}{
		{amount: 500, steps: 1},
		{amount: 5_000, steps: 2},
		{amount: 50_000, steps: 3},
	}
	for _, tc := range cases {
		doc := f.newBill(t, orgID, tc.amount)
		wf, err := f.workflows.Create(ctx, doc, submitter)
		require.NoError(t, err)
		require.NotNil(t, wf)
		assert.Equal(t, domain.StatusPending, wf.Status)
		assert.Equal(t, 1, wf.CurrentStep)
		assert.Equal(t, tc.steps, wf.TotalSteps)

		steps, err := f.wfRepo.Steps(ctx, wf.ID)
		require.NoError(t, err)
		require.Len(t, steps, tc.steps)
		assert.Equal(t, "approver1@acme.test", steps[0].ApproverEmail)

		got, err := f.docs.Get(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, documentdomain.ApprovalStatusPending, got.ApprovalStatus)
		assert.Equal(t, wf.ID, *got.WorkflowID)
	}

	// One notification per submission, addressed to the first approver.
	require.Len(t, f.dispatcher.requests, 3)
	assert.Equal(t, "approver1@acme.test", f.dispatcher.requests[0].ApproverEmail)
}

func TestApproveAdvancesThenCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID, submitter := f.newOrg(t)
	f.setSettings(t, orgID, nil)

	doc := f.newBill(t, orgID, 5_000)
	wf, err := f.workflows.Create(ctx, doc, submitter)
	require.NoError(t, err)
	require.Equal(t, 2, wf.TotalSteps)

	wf, err = f.workflows.Decide(ctx, wf.ID, domain.Actor{UserID: "user-appr1", Email: "approver1@acme.test"}, domain.DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, wf.Status)
	assert.Equal(t, 2, wf.CurrentStep)

	got, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documentdomain.ApprovalStatusPending, got.ApprovalStatus)

	wf, err = f.workflows.Decide(ctx, wf.ID, domain.Actor{UserID: "user-appr2", Email: "approver2@acme.test"}, domain.DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, wf.Status)

	got, err = f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documentdomain.ApprovalStatusApproved, got.ApprovalStatus)
	assert.Equal(t, documentdomain.LedgerStatusSynced, got.LedgerStatus)

	entry, err := f.ledgerRepo.FindByPayable(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, string(documentdomain.ApprovalStatusApproved), entry.Status)

	require.NotEmpty(t, f.dispatcher.notices)
	assert.True(t, f.dispatcher.notices[0].Approved)
	assert.Equal(t, "submitter@acme.test", f.dispatcher.notices[0].SubmitterEmail)
}

func TestRejectShortCircuits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID, submitter := f.newOrg(t)
	f.setSettings(t, orgID, nil)

	doc := f.newBill(t, orgID, 5_000)
	wf, err := f.workflows.Create(ctx, doc, submitter)
	require.NoError(t, err)

	wf, err = f.workflows.Decide(ctx, wf.ID, domain.Actor{UserID: "user-appr1", Email: "approver1@acme.test"}, domain.DecisionReject, "missing PO")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, wf.Status)

	got, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documentdomain.ApprovalStatusRejected, got.ApprovalStatus)

	// Rejection never projects to the ledger.
	_, err = f.ledgerRepo.FindByPayable(ctx, doc.ID)
	assert.ErrorIs(t, err, ledgerdomain.ErrNotFound)

	// The second step was never offered a decision.
	steps, err := f.wfRepo.Steps(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepStatusRejected, steps[0].Status)
	assert.Equal(t, domain.StepStatusPending, steps[1].Status)

	// Terminal state is final.
	_, err = f.workflows.Decide(ctx, wf.ID, domain.Actor{UserID: "user-appr2", Email: "approver2@acme.test"}, domain.DecisionApprove, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestDecidePermissionGates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID, submitter := f.newOrg(t)
	f.setSettings(t, orgID, nil)

	_, err := f.orgs.AddMember(ctx, orgID, orgdomain.AddMemberRequest{
		UserID: "user-plain", Email: "plain@acme.test", Role: orgdomain.RoleMember,
	})
	require.NoError(t, err)

	doc := f.newBill(t, orgID, 5_000)
	wf, err := f.workflows.Create(ctx, doc, submitter)
	require.NoError(t, err)

	// No approve capability.
	_, err = f.workflows.Decide(ctx, wf.ID, domain.Actor{UserID: "user-plain", Email: "plain@acme.test"}, domain.DecisionApprove, "")
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	// Has the capability, but is not the approver of record for the current
	// step: out of turn, not forbidden.
	_, err = f.workflows.Decide(ctx, wf.ID, domain.Actor{UserID: "user-appr2", Email: "approver2@acme.test"}, domain.DecisionApprove, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// Not a member at all.
	_, err = f.workflows.Decide(ctx, wf.ID, domain.Actor{UserID: "ghost", Email: "ghost@acme.test"}, domain.DecisionApprove, "")
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	// Unknown verb.
	_, err = f.workflows.Decide(ctx, wf.ID, domain.Actor{UserID: "user-appr1", Email: "approver1@acme.test"}, domain.Decision("defer"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidDecision)
}

func TestSubmitterWithoutCreateCapabilityDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID, _ := f.newOrg(t)
	f.setSettings(t, orgID, nil)

	doc := f.newBill(t, orgID, 5_000)
	// Approvers may decide but not submit.
	_, err := f.workflows.Create(ctx, doc, domain.Actor{UserID: "user-appr1", Email: "approver1@acme.test"})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	got, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documentdomain.ApprovalStatusDraft, got.ApprovalStatus)
}

func TestAutoApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID, submitter := f.newOrg(t)
	f.setSettings(t, orgID, func(s *settingsdomain.Settings) {
		s.AutoApprove = settingsdomain.AutoApprove{
			Enabled: true,
			Conditions: settingsdomain.AutoApproveConditions{
				VendorWhitelist: []string{"Globex"},
				AmountLimit:     1_000,
			},
		}
	})

	doc := f.newBill(t, orgID, 800)
	wf, err := f.workflows.Create(ctx, doc, submitter)
	require.NoError(t, err)
	require.NotNil(t, wf)
	assert.Equal(t, domain.StatusApproved, wf.Status)
	assert.Equal(t, 0, wf.TotalSteps)

	steps, err := f.wfRepo.Steps(ctx, wf.ID)
	require.NoError(t, err)
	assert.Empty(t, steps)

	got, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documentdomain.ApprovalStatusApproved, got.ApprovalStatus)
	assert.Equal(t, documentdomain.LedgerStatusSynced, got.LedgerStatus)
	assert.Empty(t, f.dispatcher.requests)
}

func TestAutoApproveConditionsMissRunFullWorkflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID, submitter := f.newOrg(t)
	f.setSettings(t, orgID, func(s *settingsdomain.Settings) {
		s.AutoApprove = settingsdomain.AutoApprove{
			Enabled: true,
			Conditions: settingsdomain.AutoApproveConditions{
				VendorWhitelist: []string{"Initech"},
				AmountLimit:     1_000,
			},
		}
	})

	doc := f.newBill(t, orgID, 800)
	wf, err := f.workflows.Create(ctx, doc, submitter)
	require.NoError(t, err)
	require.NotNil(t, wf)
	assert.Equal(t, domain.StatusPending, wf.Status)
	assert.Equal(t, 1, wf.TotalSteps)
}

func TestDoubleSubmitLoses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID, submitter := f.newOrg(t)
	f.setSettings(t, orgID, nil)

	doc := f.newBill(t, orgID, 5_000)
	_, err := f.workflows.Create(ctx, doc, submitter)
	require.NoError(t, err)

	stale := *doc
	stale.ApprovalStatus = documentdomain.ApprovalStatusDraft
	_, err = f.workflows.Create(ctx, &stale, submitter)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestFallbackApproversFillMissingSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	org, err := f.orgs.Create(ctx, "user-owner", "owner@solo.test", orgdomain.CreateOrganizationRequest{Name: "Solo"})
	require.NoError(t, err)
	_, err = f.orgs.AddMember(ctx, org.ID, orgdomain.AddMemberRequest{
		UserID: "user-sub", Email: "submitter@solo.test", Role: orgdomain.RoleAccountant,
	})
	require.NoError(t, err)
	f.setSettings(t, org.ID, func(s *settingsdomain.Settings) {
		s.FallbackApprovers = []string{"cfo@solo.test", "ceo@solo.test"}
	})

	doc := f.newBill(t, org.ID, 50_000)
	wf, err := f.workflows.Create(ctx, doc, domain.Actor{UserID: "user-sub", Email: "submitter@solo.test"})
	require.NoError(t, err)
	require.Equal(t, 3, wf.TotalSteps)

	steps, err := f.wfRepo.Steps(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, "cfo@solo.test", steps[0].ApproverEmail)
	assert.Equal(t, "ceo@solo.test", steps[1].ApproverEmail)
	assert.Equal(t, "cfo@solo.test", steps[2].ApproverEmail)
}

func TestIndividualDocumentSkipsOrgPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := "user-indie"
	doc := &documentdomain.FinancialDocument{
		ID:             f.node.Generate(),
		Kind:           documentdomain.KindInvoice,
		OwnerID:        &owner,
		Counterparty:   documentdomain.Counterparty{Name: "Client Co", Type: "customer"},
		Amount:         2_500,
		Currency:       "USD",
		ApprovalStatus: documentdomain.ApprovalStatusDraft,
		PaymentStatus:  documentdomain.PaymentStatusUnpaid,
		LedgerStatus:   documentdomain.LedgerStatusPending,
		CreatedAt:      f.clk.Now(),
		UpdatedAt:      f.clk.Now(),
	}
	require.NoError(t, f.docs.Create(ctx, doc))

	wf, err := f.workflows.Create(ctx, doc, domain.Actor{UserID: owner, Email: "indie@solo.test"})
	require.NoError(t, err)
	assert.Nil(t, wf)

	entry, err := f.ledgerRepo.FindByInvoice(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "RCV-202609-0001", entry.EntryID)
	assert.Equal(t, ledgerdomain.EntryTypeReceivable, entry.Type)
}
