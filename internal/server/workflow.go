package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/chriis-fr/global-sub005/internal/authcontext"
	"github.com/chriis-fr/global-sub005/internal/authorization"
	workflowdomain "github.com/chriis-fr/global-sub005/internal/workflow/domain"
)

type decideWorkflowRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

func (s *Server) getWorkflow(c *gin.Context) {
	workflowID, err := workflowIDFromPath(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	wf, steps, err := s.workflowSvc.Get(c.Request.Context(), workflowID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.authorizeForOrg(c, wf.OrgID, authorization.ObjectWorkflow, authorization.ActionWorkflowView); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"workflow": wf,
		"steps":    steps,
	})
}

// decideWorkflow records an approve or reject by the current step's approver.
// Capability and step-assignment checks live in the workflow service; the
// route gate only requires membership with workflow.decide.
func (s *Server) decideWorkflow(c *gin.Context) {
	workflowID, err := workflowIDFromPath(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req decideWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	wf, _, err := s.workflowSvc.Get(c.Request.Context(), workflowID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeForOrg(c, wf.OrgID, authorization.ObjectWorkflow, authorization.ActionWorkflowDecide); err != nil {
		AbortWithError(c, err)
		return
	}

	actor, _ := authcontext.ActorFromContext(c.Request.Context())
	updated, err := s.workflowSvc.Decide(
		c.Request.Context(),
		workflowID,
		workflowdomain.Actor{UserID: actor.UserID, Email: actor.Email},
		workflowdomain.Decision(strings.ToLower(strings.TrimSpace(req.Decision))),
		strings.TrimSpace(req.Reason),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func workflowIDFromPath(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("workflow_id")))
	if err != nil || id == 0 {
		return 0, newValidationError("workflow_id", "invalid_workflow_id", "invalid workflow id")
	}
	return id, nil
}
