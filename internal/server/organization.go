package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chriis-fr/global-sub005/internal/authcontext"
	organizationdomain "github.com/chriis-fr/global-sub005/internal/organization/domain"
	"github.com/chriis-fr/global-sub005/internal/orgcontext"
)

type changeMemberRoleRequest struct {
	Role string `json:"role"`
}

// createOrganization creates an org with the caller as owner. There is no
// org to authorize against yet; any authenticated actor may create one.
func (s *Server) createOrganization(c *gin.Context) {
	actor, ok := authcontext.ActorFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req organizationdomain.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	org, err := s.organizationSvc.Create(c.Request.Context(), actor.UserID, actor.Email, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &org.ID, "organization.create", "organization", org.ID.String(), map[string]any{
		"name": org.Name,
	})

	c.JSON(http.StatusCreated, org)
}

func (s *Server) getOrganization(c *gin.Context) {
	orgID, _ := orgcontext.OrgIDFromContext(c.Request.Context())

	org, err := s.organizationSvc.Get(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

func (s *Server) listMembers(c *gin.Context) {
	orgID, _ := orgcontext.OrgIDFromContext(c.Request.Context())

	members, err := s.organizationSvc.Members(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (s *Server) addMember(c *gin.Context) {
	orgID, _ := orgcontext.OrgIDFromContext(c.Request.Context())

	var req organizationdomain.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.organizationSvc.AddMember(c.Request.Context(), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &orgID, "organization.member.add", "organization_member", member.UserID, map[string]any{
		"role": string(member.Role),
	})

	c.JSON(http.StatusCreated, member)
}

func (s *Server) changeMemberRole(c *gin.Context) {
	orgID, _ := orgcontext.OrgIDFromContext(c.Request.Context())

	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		AbortWithError(c, organizationdomain.ErrInvalidUser)
		return
	}

	var req changeMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	role := organizationdomain.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if err := s.organizationSvc.ChangeMemberRole(c.Request.Context(), orgID, userID, role); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &orgID, "organization.member.change_role", "organization_member", userID, map[string]any{
		"role": string(role),
	})

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role})
}
