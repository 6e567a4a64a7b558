package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chriis-fr/global-sub005/internal/orgcontext"
)

// runReconciliation triggers a sweep on demand, outside the scheduled
// interval; ?pass= restricts the run to one named pass. The sweep itself is
// global; the route gate just requires reconciliation.run in the caller's org.
func (s *Server) runReconciliation(c *gin.Context) {
	pass := strings.TrimSpace(c.Query("pass"))
	report, err := s.sweeper.Run(c.Request.Context(), pass)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context()); ok {
		s.audit(c, &orgID, "reconciliation.run", "reconciliation_sweep", orgID.String(), map[string]any{
			"pass":        pass,
			"corrections": report.Total(),
		})
	}

	c.JSON(http.StatusOK, report)
}
