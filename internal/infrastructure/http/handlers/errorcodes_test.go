package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &domerrors.ValidationError{Field: "username", Reason: "too short"}, http.StatusBadRequest, ErrCodeInvalidRequest},
		{"taken", domerrors.ErrUsernameTaken, http.StatusConflict, ErrCodeUsernameTaken},
		{"lost reservation race", &domerrors.ProvisioningError{Step: "reserve", Cause: domerrors.ErrUsernameTaken}, http.StatusConflict, ErrCodeUsernameTaken},
		{"noop", domerrors.ErrNoOpRename, http.StatusUnprocessableEntity, ErrCodeNoOpRename},
		{"email in use", &domerrors.IdentityCreationError{Cause: domerrors.ErrEmailInUse}, http.StatusConflict, ErrCodeEmailInUse},
		{"weak password", &domerrors.IdentityCreationError{Cause: fmt.Errorf("%w: too short", domerrors.ErrWeakPassword)}, http.StatusBadRequest, ErrCodeWeakPassword},
		{"provider down", &domerrors.IdentityCreationError{Cause: domerrors.ErrProviderUnavailable}, http.StatusServiceUnavailable, ErrCodeProviderUnavailable},
		{"identity creation unknown", &domerrors.IdentityCreationError{Cause: errors.New("quota")}, http.StatusBadGateway, ErrCodeProviderUnavailable},
		{"provisioning", &domerrors.ProvisioningError{Step: "materialize_profile", Cause: errors.New("disk")}, http.StatusInternalServerError, ErrCodeProvisioningFailed},
		{"rename", &domerrors.RenameError{Step: "update_profile", Cause: errors.New("disk")}, http.StatusInternalServerError, ErrCodeRenameFailed},
		{"locked", &domerrors.LockedError{RetryAfterSeconds: 30}, http.StatusTooManyRequests, ErrCodeAccountLocked},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mapError(tt.err)
			assert.Equal(t, tt.status, m.status)
			assert.Equal(t, tt.code, m.code)
		})
	}
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestWriteDomainErr_SagaFields(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainErr(rec, &domerrors.ProvisioningError{
		Step:            "send_verification",
		Cause:           errors.New("smtp"),
		CompensationErr: errors.New("delete failed"),
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, ErrCodeProvisioningFailed, body["code"])
	assert.Equal(t, true, body["partial_state"])
	assert.Equal(t, false, body["retryable"])
	assert.NotContains(t, body["error"], "smtp")

	rec = httptest.NewRecorder()
	writeDomainErr(rec, &domerrors.RenameError{Step: "set_display_name", Cause: domerrors.ErrStepTimeout})
	body = decodeErrorBody(t, rec)
	assert.Equal(t, ErrCodeRenameFailed, body["code"])
	assert.Equal(t, true, body["retryable"])
	assert.NotContains(t, body, "partial_state")

	rec = httptest.NewRecorder()
	writeDomainErr(rec, &domerrors.LockedError{RetryAfterSeconds: 42})
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	body = decodeErrorBody(t, rec)
	assert.NotContains(t, body, "retryable")
}
