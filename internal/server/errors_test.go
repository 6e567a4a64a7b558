package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	settingsdomain "github.com/chriis-fr/global-sub005/internal/approvalsettings/domain"
	"github.com/chriis-fr/global-sub005/internal/authorization"
	documentdomain "github.com/chriis-fr/global-sub005/internal/document/domain"
	ledgerdomain "github.com/chriis-fr/global-sub005/internal/ledgersync/domain"
	organizationdomain "github.com/chriis-fr/global-sub005/internal/organization/domain"
	"github.com/chriis-fr/global-sub005/internal/reconciliation"
	workflowdomain "github.com/chriis-fr/global-sub005/internal/workflow/domain"
)

func TestMapErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"casbin denial", authorization.ErrForbidden, http.StatusForbidden},
		{"workflow capability denial", workflowdomain.ErrPermissionDenied, http.StatusForbidden},
		{"workflow state conflict", workflowdomain.ErrInvalidState, http.StatusConflict},
		{"document state conflict", documentdomain.ErrInvalidState, http.StatusConflict},
		{"sweep already running", reconciliation.ErrSweepAlreadyRunning, http.StatusConflict},
		{"document not found", documentdomain.ErrNotFound, http.StatusNotFound},
		{"workflow not found", workflowdomain.ErrNotFound, http.StatusNotFound},
		{"settings not found", settingsdomain.ErrNotFound, http.StatusNotFound},
		{"member not found", organizationdomain.ErrMemberNotFound, http.StatusNotFound},
		{"record not found", gorm.ErrRecordNotFound, http.StatusNotFound},
		{"invalid kind", documentdomain.ErrInvalidKind, http.StatusBadRequest},
		{"invalid decision", workflowdomain.ErrInvalidDecision, http.StatusBadRequest},
		{"no approvers", workflowdomain.ErrNoApprovers, http.StatusBadRequest},
		{"invalid thresholds", settingsdomain.ErrInvalidThresholds, http.StatusBadRequest},
		{"entry id exhausted", ledgerdomain.ErrEntryIDExhausted, http.StatusServiceUnavailable},
		{"unknown", assertableErr{}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := mapError(tc.err)
			assert.Equal(t, tc.status, status)
		})
	}
}

type assertableErr struct{}

func (assertableErr) Error() string { return "boom" }

func TestMapErrorValidationPayload(t *testing.T) {
	status, payload := mapError(newValidationError("org_id", "invalid_organization", "invalid organization id"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", payload.Type)
	if assert.Len(t, payload.Errors, 1) {
		assert.Equal(t, "org_id", payload.Errors[0].Field)
		assert.Equal(t, "invalid_organization", payload.Errors[0].Code)
	}
}

func TestMapErrorDomainValidationCode(t *testing.T) {
	status, payload := mapError(documentdomain.ErrInvalidCurrency)
	assert.Equal(t, http.StatusBadRequest, status)
	if assert.Len(t, payload.Errors, 1) {
		assert.Equal(t, "invalid_currency", payload.Errors[0].Code)
		assert.Equal(t, "currency", payload.Errors[0].Field)
	}
}
