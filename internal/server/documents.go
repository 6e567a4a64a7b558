package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chriis-fr/global-sub005/internal/authcontext"
	"github.com/chriis-fr/global-sub005/internal/authorization"
	documentdomain "github.com/chriis-fr/global-sub005/internal/document/domain"
	"github.com/chriis-fr/global-sub005/internal/permission"
	workflowdomain "github.com/chriis-fr/global-sub005/internal/workflow/domain"
)

func (s *Server) createDocument(c *gin.Context) {
	var raw documentdomain.RawDocument
	if err := c.ShouldBindJSON(&raw); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	doc, err := documentdomain.Normalize(raw)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actor, ok := authcontext.ActorFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.authorizeDocument(c, doc, authorization.ActionDocumentCreate); err != nil {
		AbortWithError(c, err)
		return
	}

	now := s.clk.Now()
	doc.ID = s.genID.Generate()
	doc.SubmittedBy = actor.UserID
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if err := s.documentRepo.Create(c.Request.Context(), doc); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, doc.OrgID, "document.create", "financial_document", doc.ID.String(), map[string]any{
		"kind":   string(doc.Kind),
		"amount": doc.Amount,
	})

	c.JSON(http.StatusCreated, doc)
}

func (s *Server) getDocument(c *gin.Context) {
	doc, err := s.documentFromPath(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeDocument(c, doc, authorization.ActionDocumentView); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) listDocuments(c *gin.Context) {
	orgID, err := s.orgIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filter := documentdomain.ListFilter{OrgID: orgID}
	if kind := strings.TrimSpace(c.Query("kind")); kind != "" {
		filter.Kind = documentdomain.Kind(strings.ToLower(kind))
		if !filter.Kind.Valid() {
			AbortWithError(c, documentdomain.ErrInvalidKind)
			return
		}
	}
	if status := strings.TrimSpace(c.Query("approval_status")); status != "" {
		filter.ApprovalStatus = documentdomain.ApprovalStatus(status)
	}
	if limit, err := parseOptionalInt(c.Query("limit")); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	} else if limit != nil {
		filter.Limit = *limit
	}

	docs, err := s.documentRepo.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// submitDocument moves a draft into the approval pipeline. The workflow
// service owns the outcome: direct approval, auto approval, or a tiered
// workflow with notified approvers.
func (s *Server) submitDocument(c *gin.Context) {
	doc, err := s.documentFromPath(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeDocument(c, doc, authorization.ActionDocumentSubmit); err != nil {
		AbortWithError(c, err)
		return
	}

	actor, _ := authcontext.ActorFromContext(c.Request.Context())
	wf, err := s.workflowSvc.Create(c.Request.Context(), doc, workflowdomain.Actor{
		UserID: actor.UserID,
		Email:  actor.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	updated, err := s.documentRepo.Get(c.Request.Context(), doc.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{"document": updated}
	if wf != nil {
		resp["workflow"] = wf
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) payDocument(c *gin.Context) {
	doc, err := s.documentFromPath(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeDocument(c, doc, authorization.ActionDocumentPay); err != nil {
		AbortWithError(c, err)
		return
	}
	if doc.OrgID != nil {
		if err := s.requireCapability(c, *doc.OrgID, permission.ActionExecutePayments); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	// Payment never bypasses the approval pipeline: only an approved
	// document may be paid. Paid is allowed through for idempotent repeats.
	if doc.ApprovalStatus != documentdomain.ApprovalStatusApproved &&
		doc.ApprovalStatus != documentdomain.ApprovalStatusPaid {
		AbortWithError(c, documentdomain.ErrInvalidState)
		return
	}

	if err := s.ledgerSvc.MarkPaid(c.Request.Context(), doc.ID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, doc.OrgID, "document.pay", "financial_document", doc.ID.String(), nil)

	updated, err := s.documentRepo.Get(c.Request.Context(), doc.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// cancelDocument retires a document before payment. Cancelled is terminal:
// the sweep and workflow propagation both leave it alone.
func (s *Server) cancelDocument(c *gin.Context) {
	doc, err := s.documentFromPath(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeDocument(c, doc, authorization.ActionDocumentSubmit); err != nil {
		AbortWithError(c, err)
		return
	}

	if doc.PaymentStatus == documentdomain.PaymentStatusPaid ||
		doc.ApprovalStatus == documentdomain.ApprovalStatusPaid ||
		doc.ApprovalStatus == documentdomain.ApprovalStatusCanceled {
		AbortWithError(c, documentdomain.ErrInvalidState)
		return
	}

	if err := s.documentRepo.TransitionApprovalStatus(c.Request.Context(), doc.ID, doc.ApprovalStatus, documentdomain.ApprovalStatusCanceled); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, doc.OrgID, "document.cancel", "financial_document", doc.ID.String(), nil)

	updated, err := s.documentRepo.Get(c.Request.Context(), doc.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) documentFromPath(c *gin.Context) (*documentdomain.FinancialDocument, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("document_id")))
	if err != nil || id == 0 {
		return nil, newValidationError("document_id", "invalid_document_id", "invalid document id")
	}
	return s.documentRepo.Get(c.Request.Context(), id)
}

// authorizeDocument applies the org policy for org-owned documents. An
// individually owned document has no org policy to consult; only its owner
// may touch it.
func (s *Server) authorizeDocument(c *gin.Context, doc *documentdomain.FinancialDocument, action string) error {
	actor, ok := authcontext.ActorFromContext(c.Request.Context())
	if !ok {
		return ErrUnauthorized
	}
	if doc.OrgID != nil {
		return s.authorizeForOrg(c, *doc.OrgID, authorization.ObjectDocument, action)
	}
	if doc.OwnerID == nil || *doc.OwnerID != actor.UserID {
		return ErrForbidden
	}
	return nil
}

func (s *Server) audit(c *gin.Context, orgID *snowflake.ID, action, targetType, targetID string, metadata map[string]any) {
	actor, ok := authcontext.ActorFromContext(c.Request.Context())
	var actorID *string
	actorType := "system"
	if ok {
		actorType = "user"
		actorID = &actor.UserID
	}
	if err := s.auditSvc.AuditLog(c.Request.Context(), orgID, actorType, actorID, action, targetType, &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
