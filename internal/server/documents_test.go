package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/chriis-fr/global-sub005/internal/audit/domain"
	auditrepo "github.com/chriis-fr/global-sub005/internal/audit/repository"
	auditsvc "github.com/chriis-fr/global-sub005/internal/audit/service"
	"github.com/chriis-fr/global-sub005/internal/authcontext"
	"github.com/chriis-fr/global-sub005/internal/clock"
	documentdomain "github.com/chriis-fr/global-sub005/internal/document/domain"
	documentrepo "github.com/chriis-fr/global-sub005/internal/document/repository"
	ledgerdomain "github.com/chriis-fr/global-sub005/internal/ledgersync/domain"
	ledgerrepo "github.com/chriis-fr/global-sub005/internal/ledgersync/repository"
	ledgersvc "github.com/chriis-fr/global-sub005/internal/ledgersync/service"
	organizationdomain "github.com/chriis-fr/global-sub005/internal/organization/domain"
	orgrepo "github.com/chriis-fr/global-sub005/internal/organization/repository"
	orgsvc "github.com/chriis-fr/global-sub005/internal/organization/service"
	"github.com/chriis-fr/global-sub005/internal/permission"
	workflowdomain "github.com/chriis-fr/global-sub005/internal/workflow/domain"
	wfrepo "github.com/chriis-fr/global-sub005/internal/workflow/repository"
)

type serverFixture struct {
	srv    *Server
	engine *gin.Engine
	node   *snowflake.Node
	docs   documentdomain.Repository
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&organizationdomain.Organization{},
		&organizationdomain.OrganizationMember{},
		&documentdomain.FinancialDocument{},
		&workflowdomain.ApprovalWorkflow{},
		&workflowdomain.ApprovalStep{},
		&ledgerdomain.LedgerEntry{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))

	docs := documentrepo.Provide(db)
	lrepo := ledgerrepo.Provide(db)
	wfs := wfrepo.Provide(db)
	audit := auditsvc.NewService(auditsvc.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Repo: auditrepo.Provide(),
	})
	ledger := ledgersvc.NewService(ledgersvc.Params{
		Log: zap.NewNop(), Clock: clk, GenID: node,
		Repo: lrepo, DocumentRepo: docs, WorkflowRepo: wfs,
	})
	orgs := orgsvc.NewService(db, zap.NewNop(), orgrepo.Provide(db), node)

	srv := &Server{
		log:             zap.NewNop(),
		genID:           node,
		clk:             clk,
		auditSvc:        audit,
		organizationSvc: orgs,
		documentRepo:    docs,
		ledgerSvc:       ledger,
	}

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	engine.Use(RequestActor())
	engine.POST("/documents/:document_id/pay", srv.payDocument)

	return &serverFixture{srv: srv, engine: engine, node: node, docs: docs}
}

func (f *serverFixture) newOwnedDoc(t *testing.T, owner string, status documentdomain.ApprovalStatus) *documentdomain.FinancialDocument {
	t.Helper()
	doc := &documentdomain.FinancialDocument{
		ID:             f.node.Generate(),
		Kind:           documentdomain.KindBill,
		OwnerID:        &owner,
		Counterparty:   documentdomain.Counterparty{Name: "Globex", Type: "vendor"},
		Amount:         1_500,
		Currency:       "USD",
		ApprovalStatus: status,
		PaymentStatus:  documentdomain.PaymentStatusUnpaid,
		LedgerStatus:   documentdomain.LedgerStatusPending,
	}
	require.NoError(t, f.docs.Create(context.Background(), doc))
	return doc
}

func (f *serverFixture) pay(t *testing.T, docID snowflake.ID, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/documents/"+docID.String()+"/pay", nil)
	req.Header.Set(HeaderUserID, userID)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestPayDocumentRequiresApprovedStatus(t *testing.T) {
	f := newServerFixture(t)

	for _, status := range []documentdomain.ApprovalStatus{
		documentdomain.ApprovalStatusDraft,
		documentdomain.ApprovalStatusPending,
		documentdomain.ApprovalStatusRejected,
		documentdomain.ApprovalStatusCanceled,
	} {
		doc := f.newOwnedDoc(t, "user-1", status)
		w := f.pay(t, doc.ID, "user-1")
		assert.Equal(t, http.StatusConflict, w.Code, "status %s must not be payable", status)

		got, err := f.docs.Get(context.Background(), doc.ID)
		require.NoError(t, err)
		assert.Equal(t, documentdomain.PaymentStatusUnpaid, got.PaymentStatus)
	}
}

func TestPayDocumentPaysApprovedDocument(t *testing.T) {
	f := newServerFixture(t)
	doc := f.newOwnedDoc(t, "user-1", documentdomain.ApprovalStatusApproved)

	w := f.pay(t, doc.ID, "user-1")
	assert.Equal(t, http.StatusOK, w.Code)

	got, err := f.docs.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documentdomain.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, documentdomain.ApprovalStatusPaid, got.ApprovalStatus)

	// Repeat payment is idempotent.
	w = f.pay(t, doc.ID, "user-1")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPayDocumentRejectsNonOwner(t *testing.T) {
	f := newServerFixture(t)
	doc := f.newOwnedDoc(t, "user-1", documentdomain.ApprovalStatusApproved)

	w := f.pay(t, doc.ID, "user-2")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireCapabilityHonorsMemberOverrides(t *testing.T) {
	f := newServerFixture(t)
	ctx := context.Background()

	org, err := f.srv.organizationSvc.Create(ctx, "user-owner", "owner@acme.test", organizationdomain.CreateOrganizationRequest{
		Name: "Acme Corp",
	})
	require.NoError(t, err)

	_, err = f.srv.organizationSvc.AddMember(ctx, org.ID, organizationdomain.AddMemberRequest{
		UserID: "user-fm",
		Email:  "fm@acme.test",
		Role:   organizationdomain.RoleFinanceManager,
	})
	require.NoError(t, err)
	_, err = f.srv.organizationSvc.AddMember(ctx, org.ID, organizationdomain.AddMemberRequest{
		UserID:    "user-fm2",
		Email:     "fm2@acme.test",
		Role:      organizationdomain.RoleFinanceManager,
		Overrides: map[string]any{"payments.execute": false},
	})
	require.NoError(t, err)

	asUser := func(userID string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		c.Request = req.WithContext(authcontext.WithActor(req.Context(), authcontext.Actor{UserID: userID}))
		return c
	}

	// Role bundle grants the capability.
	assert.NoError(t, f.srv.requireCapability(asUser("user-fm"), org.ID, permission.ActionExecutePayments))

	// A member override revokes what the bundle grants.
	assert.ErrorIs(t, f.srv.requireCapability(asUser("user-fm2"), org.ID, permission.ActionExecutePayments), ErrForbidden)

	// Non-members hold no capabilities.
	assert.ErrorIs(t, f.srv.requireCapability(asUser("ghost"), org.ID, permission.ActionExecutePayments), ErrForbidden)
}
