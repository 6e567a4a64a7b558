package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	settingsdomain "github.com/chriis-fr/global-sub005/internal/approvalsettings/domain"
	"github.com/chriis-fr/global-sub005/internal/orgcontext"
	"github.com/chriis-fr/global-sub005/internal/permission"
)

func (s *Server) getApprovalSettings(c *gin.Context) {
	orgID, _ := orgcontext.OrgIDFromContext(c.Request.Context())

	settings, err := s.settingsSvc.Get(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// getEffectiveApprovalSettings returns the policy the workflow engine will
// actually apply, falling back to configured defaults when the organization
// never saved its own.
func (s *Server) getEffectiveApprovalSettings(c *gin.Context) {
	orgID, _ := orgcontext.OrgIDFromContext(c.Request.Context())

	settings, err := s.settingsSvc.Effective(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) setApprovalSettings(c *gin.Context) {
	orgID, _ := orgcontext.OrgIDFromContext(c.Request.Context())
	if err := s.requireCapability(c, orgID, permission.ActionManageSettings); err != nil {
		AbortWithError(c, err)
		return
	}

	var settings settingsdomain.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.settingsSvc.Set(c.Request.Context(), orgID, settings); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &orgID, "approval_settings.update", "org_approval_settings", orgID.String(), map[string]any{
		"require_approval": settings.RequireApproval,
	})

	c.JSON(http.StatusOK, settings)
}
