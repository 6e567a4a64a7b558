package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/chriis-fr/global-sub005/internal/clock"
	documentdomain "github.com/chriis-fr/global-sub005/internal/document/domain"
	documentrepo "github.com/chriis-fr/global-sub005/internal/document/repository"
	"github.com/chriis-fr/global-sub005/internal/ledgersync/domain"
	ledgerrepo "github.com/chriis-fr/global-sub005/internal/ledgersync/repository"
	workflowdomain "github.com/chriis-fr/global-sub005/internal/workflow/domain"
	wfrepo "github.com/chriis-fr/global-sub005/internal/workflow/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	node  *snowflake.Node
	clk   *clock.FakeClock
	docs  documentdomain.Repository
	repo  domain.Repository
	wfs   workflowdomain.Repository
	sync  domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&documentdomain.FinancialDocument{},
		&workflowdomain.ApprovalWorkflow{},
		&workflowdomain.ApprovalStep{},
		&domain.LedgerEntry{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))

	docs := documentrepo.Provide(db)
	repo := ledgerrepo.Provide(db)
	wfs := wfrepo.Provide(db)
	sync := NewService(Params{
		Log: zap.NewNop(), Clock: clk, GenID: node,
		Repo: repo, DocumentRepo: docs, WorkflowRepo: wfs,
	})
	return &fixture{node: node, clk: clk, docs: docs, repo: repo, wfs: wfs, sync: sync}
}

func (f *fixture) newDoc(t *testing.T, kind documentdomain.Kind, orgID snowflake.ID, amount int64) *documentdomain.FinancialDocument {
	t.Helper()
	doc := &documentdomain.FinancialDocument{
		ID:             f.node.Generate(),
		Kind:           kind,
		OrgID:          &orgID,
		Counterparty:   documentdomain.Counterparty{Name: "Globex", Type: "vendor"},
		Amount:         amount,
		Currency:       "USD",
		ApprovalStatus: documentdomain.ApprovalStatusApproved,
		PaymentStatus:  documentdomain.PaymentStatusUnpaid,
		LedgerStatus:   documentdomain.LedgerStatusPending,
		CreatedAt:      f.clk.Now(),
		UpdatedAt:      f.clk.Now(),
	}
	require.NoError(t, f.docs.Create(context.Background(), doc))
	return doc
}

func (f *fixture) newLinkedPayable(t *testing.T, orgID snowflake.ID, amount int64, invoiceID snowflake.ID) *documentdomain.FinancialDocument {
	t.Helper()
	doc := &documentdomain.FinancialDocument{
		ID:               f.node.Generate(),
		Kind:             documentdomain.KindPayable,
		OrgID:            &orgID,
		Counterparty:     documentdomain.Counterparty{Name: "Globex", Type: "vendor"},
		Amount:           amount,
		Currency:         "USD",
		ApprovalStatus:   documentdomain.ApprovalStatusApproved,
		PaymentStatus:    documentdomain.PaymentStatusUnpaid,
		LedgerStatus:     documentdomain.LedgerStatusPending,
		RelatedInvoiceID: &invoiceID,
		CreatedAt:        f.clk.Now(),
		UpdatedAt:        f.clk.Now(),
	}
	require.NoError(t, f.docs.Create(context.Background(), doc))
	return doc
}

func TestSyncDocumentToLedgerCreatesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID := f.node.Generate()
	doc := f.newDoc(t, documentdomain.KindBill, orgID, 4_200)

	require.NoError(t, f.sync.SyncDocumentToLedger(ctx, doc))
	assert.Equal(t, documentdomain.LedgerStatusSynced, doc.LedgerStatus)

	entry, err := f.repo.FindByPayable(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAY-202609-0001", entry.EntryID)
	assert.Equal(t, int64(4_200), entry.Amount)
	assert.Equal(t, string(documentdomain.ApprovalStatusApproved), entry.Status)

	// Second call is a no-op, not a duplicate.
	require.NoError(t, f.sync.SyncDocumentToLedger(ctx, doc))
	entries, err := f.repo.List(ctx, domain.Scope{OrgID: &orgID}, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEntryIDSequencing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgA := f.node.Generate()
	orgB := f.node.Generate()

	for i := 0; i < 3; i++ {
		doc := f.newDoc(t, documentdomain.KindBill, orgA, 100)
		require.NoError(t, f.sync.SyncDocumentToLedger(ctx, doc))
	}
	entries, err := f.repo.List(ctx, domain.Scope{OrgID: &orgA}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// List is newest-first.
	assert.Equal(t, "PAY-202609-0003", entries[0].EntryID)

	// Another organization runs its own sequence.
	doc := f.newDoc(t, documentdomain.KindBill, orgB, 100)
	require.NoError(t, f.sync.SyncDocumentToLedger(ctx, doc))
	entry, err := f.repo.FindByPayable(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAY-202609-0001", entry.EntryID)

	// Receivables run a separate sequence in the same scope.
	inv := f.newDoc(t, documentdomain.KindInvoice, orgA, 100)
	require.NoError(t, f.sync.SyncDocumentToLedger(ctx, inv))
	entry, err = f.repo.FindByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "RCV-202609-0001", entry.EntryID)

	// The sequence restarts each calendar month.
	f.clk.Advance(31 * 24 * time.Hour)
	doc = f.newDoc(t, documentdomain.KindBill, orgA, 100)
	require.NoError(t, f.sync.SyncDocumentToLedger(ctx, doc))
	entry, err = f.repo.FindByPayable(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAY-202610-0001", entry.EntryID)
}

func TestMarkPaidMirrorsBothDirections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	invoice := f.newDoc(t, documentdomain.KindInvoice, orgID, 9_000)
	payable := f.newLinkedPayable(t, orgID, 9_000, invoice.ID)

	require.NoError(t, f.sync.SyncDocumentToLedger(ctx, invoice))
	require.NoError(t, f.sync.SyncDocumentToLedger(ctx, payable))

	require.NoError(t, f.sync.MarkPaid(ctx, payable.ID))

	got, err := f.docs.Get(ctx, payable.ID)
	require.NoError(t, err)
	assert.Equal(t, documentdomain.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, documentdomain.ApprovalStatusPaid, got.ApprovalStatus)

	mirrored, err := f.docs.Get(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, documentdomain.PaymentStatusPaid, mirrored.PaymentStatus)

	entry, err := f.repo.FindByInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", entry.Status)
	entry, err = f.repo.FindByPayable(ctx, payable.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", entry.Status)

	// Paying the already-paid invoice changes nothing and fails nothing.
	require.NoError(t, f.sync.MarkPaid(ctx, invoice.ID))
}

func TestMarkPaidMirrorsThroughReverseLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	invoice := f.newDoc(t, documentdomain.KindInvoice, orgID, 1_200)
	payable := f.newLinkedPayable(t, orgID, 1_200, invoice.ID)

	// The invoice has no forward reference; the mirror must find the payable
	// through the reverse lookup.
	require.NoError(t, f.sync.MarkPaid(ctx, invoice.ID))

	got, err := f.docs.Get(ctx, payable.ID)
	require.NoError(t, err)
	assert.Equal(t, documentdomain.PaymentStatusPaid, got.PaymentStatus)
}

func TestPropagateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	doc := f.newDoc(t, documentdomain.KindBill, orgID, 3_000)
	require.NoError(t, f.docs.SetApprovalStatus(ctx, doc.ID, documentdomain.ApprovalStatusPending))

	wf := workflowdomain.ApprovalWorkflow{
		ID:          f.node.Generate(),
		DocumentID:  doc.ID,
		OrgID:       orgID,
		SubmittedBy: "user-sub",
		Amount:      doc.Amount,
		Status:      workflowdomain.StatusApproved,
		CurrentStep: 1,
		TotalSteps:  1,
		SubmittedAt: f.clk.Now(),
	}
	require.NoError(t, f.wfs.Create(ctx, &wf, nil))

	require.NoError(t, f.sync.PropagateStatus(ctx, wf.ID))

	got, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documentdomain.ApprovalStatusApproved, got.ApprovalStatus)
	assert.Equal(t, documentdomain.LedgerStatusSynced, got.LedgerStatus)

	_, err = f.repo.FindByPayable(ctx, doc.ID)
	require.NoError(t, err)

	// Unknown workflow.
	err = f.sync.PropagateStatus(ctx, f.node.Generate())
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestPropagateStatusLeavesTerminalDocumentsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	doc := f.newDoc(t, documentdomain.KindBill, orgID, 3_000)
	_, err := f.docs.MarkPaid(ctx, doc.ID)
	require.NoError(t, err)

	wf := workflowdomain.ApprovalWorkflow{
		ID:          f.node.Generate(),
		DocumentID:  doc.ID,
		OrgID:       orgID,
		SubmittedBy: "user-sub",
		Status:      workflowdomain.StatusRejected,
		CurrentStep: 1,
		TotalSteps:  1,
		SubmittedAt: f.clk.Now(),
	}
	require.NoError(t, f.wfs.Create(ctx, &wf, nil))

	require.NoError(t, f.sync.PropagateStatus(ctx, wf.ID))
	got, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documentdomain.ApprovalStatusPaid, got.ApprovalStatus)
}

func TestSyncDocumentStatusTwoWayRepairsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	doc := f.newDoc(t, documentdomain.KindBill, orgID, 3_000)
	require.NoError(t, f.docs.SetApprovalStatus(ctx, doc.ID, documentdomain.ApprovalStatusPending))
	doc.ApprovalStatus = documentdomain.ApprovalStatusPending

	wf := workflowdomain.ApprovalWorkflow{
		ID:          f.node.Generate(),
		DocumentID:  doc.ID,
		OrgID:       orgID,
		SubmittedBy: "user-sub",
		Status:      workflowdomain.StatusApproved,
		CurrentStep: 1,
		TotalSteps:  1,
		SubmittedAt: f.clk.Now(),
	}
	require.NoError(t, f.wfs.Create(ctx, &wf, nil))

	changed, err := f.sync.SyncDocumentStatusTwoWay(ctx, doc)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, documentdomain.ApprovalStatusApproved, doc.ApprovalStatus)

	// Already aligned: nothing to do.
	changed, err = f.sync.SyncDocumentStatusTwoWay(ctx, doc)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSyncDocumentStatusTwoWayWithoutWorkflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	doc := f.newDoc(t, documentdomain.KindBill, orgID, 3_000)
	changed, err := f.sync.SyncDocumentStatusTwoWay(ctx, doc)
	require.NoError(t, err)
	assert.False(t, changed)
}
