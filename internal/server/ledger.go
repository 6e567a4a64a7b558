package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chriis-fr/global-sub005/internal/authcontext"
	"github.com/chriis-fr/global-sub005/internal/authorization"
	ledgerdomain "github.com/chriis-fr/global-sub005/internal/ledgersync/domain"
	"github.com/chriis-fr/global-sub005/internal/orgcontext"
	"github.com/chriis-fr/global-sub005/internal/permission"
)

const defaultLedgerListLimit = 100

// listLedgerEntries lists the caller's ledger view. With an org in context
// the org policy applies; without one the listing is scoped to entries the
// caller owns individually.
func (s *Server) listLedgerEntries(c *gin.Context) {
	actor, ok := authcontext.ActorFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	limit := defaultLedgerListLimit
	if parsed, err := parseOptionalInt(c.Query("limit")); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	} else if parsed != nil && *parsed > 0 {
		limit = *parsed
	}

	var scope ledgerdomain.Scope
	if orgID, hasOrg := orgcontext.OrgIDFromContext(c.Request.Context()); hasOrg {
		if err := s.authorizeForOrg(c, orgID, authorization.ObjectLedger, authorization.ActionLedgerView); err != nil {
			AbortWithError(c, err)
			return
		}
		if err := s.requireCapability(c, orgID, permission.ActionViewFinance); err != nil {
			AbortWithError(c, err)
			return
		}
		scope.OrgID = &orgID
	} else {
		ownerID := actor.UserID
		scope.OwnerID = &ownerID
	}

	entries, err := s.ledgerRepo.List(c.Request.Context(), scope, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
