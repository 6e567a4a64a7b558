package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriis-fr/global-sub005/internal/authcontext"
	"github.com/chriis-fr/global-sub005/internal/orgcontext"
)

func TestRequestActorFromHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestActor())

	var actor authcontext.Actor
	var present bool
	r.GET("/probe", func(c *gin.Context) {
		actor, present = authcontext.ActorFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(HeaderUserID, "user-1")
	req.Header.Set(HeaderUserEmail, "Finance@Acme.Test")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, present)
	assert.Equal(t, "user-1", actor.UserID)
	assert.Equal(t, "finance@acme.test", actor.Email)
}

func TestRequestActorAbsentWithoutHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestActor())

	var present bool
	r.GET("/probe", func(c *gin.Context) {
		_, present = authcontext.ActorFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/probe", nil))
	assert.False(t, present)
}

func TestOrgContextParsesHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	orgID := node.Generate()

	r := gin.New()
	r.Use(OrgContext())

	var resolved snowflake.ID
	var present bool
	r.GET("/probe", func(c *gin.Context) {
		resolved, present = orgcontext.OrgIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(HeaderOrg, orgID.String())
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, present)
	assert.Equal(t, orgID, resolved)
}

func TestOrgContextRejectsMalformedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	r.Use(OrgContext())
	r.GET("/probe", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(HeaderOrg, "not-a-snowflake")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
