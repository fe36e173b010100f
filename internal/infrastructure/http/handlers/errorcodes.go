package handlers

import (
	"errors"
	"net/http"

	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

// API error codes returned in JSON { "error": "...", "code": "..." } for stable client handling.
const (
	ErrCodeInvalidRequest      = "invalid_request"
	ErrCodeUsernameTaken       = "username_taken"
	ErrCodeNoOpRename          = "noop_rename"
	ErrCodeEmailInUse          = "email_in_use"
	ErrCodeWeakPassword        = "weak_password"
	ErrCodeProviderUnavailable = "provider_unavailable"
	ErrCodeProvisioningFailed  = "provisioning_failed"
	ErrCodeRenameFailed        = "rename_failed"
	ErrCodeInvalidCredentials  = "invalid_credentials"
	ErrCodeAccountLocked       = "account_locked"
	ErrCodeInvalidToken        = "invalid_token"
	ErrCodeUnauthorized        = "unauthorized"
	ErrCodeNotFound            = "not_found"
	ErrCodeConflict            = "conflict"
	ErrCodeInternal            = "internal_error"
)

// apiError is the mapped form of a domain error.
type apiError struct {
	status  int
	code    string
	message string
}

// mapError translates the domain error taxonomy to a status and a stable code. A signup that lost
// the reservation race reports username_taken. Identity creation failures are mapped by their
// provider cause; anything unknown is a 500 without internals.
func mapError(err error) apiError {
	var verr *domerrors.ValidationError
	switch {
	case errors.As(err, &verr):
		return apiError{http.StatusBadRequest, ErrCodeInvalidRequest, verr.Error()}
	case errors.Is(err, domerrors.ErrValidation):
		return apiError{http.StatusBadRequest, ErrCodeInvalidRequest, err.Error()}
	case errors.Is(err, domerrors.ErrUsernameTaken):
		return apiError{http.StatusConflict, ErrCodeUsernameTaken, domerrors.ErrUsernameTaken.Error()}
	case errors.Is(err, domerrors.ErrProvisioningFailed):
		return apiError{http.StatusInternalServerError, ErrCodeProvisioningFailed, domerrors.ErrProvisioningFailed.Error()}
	case errors.Is(err, domerrors.ErrRenameFailed):
		return apiError{http.StatusInternalServerError, ErrCodeRenameFailed, domerrors.ErrRenameFailed.Error()}
	case errors.Is(err, domerrors.ErrNoOpRename):
		return apiError{http.StatusUnprocessableEntity, ErrCodeNoOpRename, domerrors.ErrNoOpRename.Error()}
	case errors.Is(err, domerrors.ErrEmailInUse):
		return apiError{http.StatusConflict, ErrCodeEmailInUse, domerrors.ErrEmailInUse.Error()}
	case errors.Is(err, domerrors.ErrWeakPassword):
		return apiError{http.StatusBadRequest, ErrCodeWeakPassword, err.Error()}
	case errors.Is(err, domerrors.ErrProviderUnavailable):
		return apiError{http.StatusServiceUnavailable, ErrCodeProviderUnavailable, domerrors.ErrProviderUnavailable.Error()}
	case errors.Is(err, domerrors.ErrInvalidCredentials):
		return apiError{http.StatusUnauthorized, ErrCodeInvalidCredentials, domerrors.ErrInvalidCredentials.Error()}
	case errors.Is(err, domerrors.ErrAccountLocked):
		return apiError{http.StatusTooManyRequests, ErrCodeAccountLocked, err.Error()}
	case errors.Is(err, domerrors.ErrEmailVerificationInvalid):
		return apiError{http.StatusBadRequest, ErrCodeInvalidToken, domerrors.ErrEmailVerificationInvalid.Error()}
	case errors.Is(err, domerrors.ErrAccountNotFound), errors.Is(err, domerrors.ErrProfileNotFound), errors.Is(err, domerrors.ErrNotFound):
		return apiError{http.StatusNotFound, ErrCodeNotFound, err.Error()}
	case errors.Is(err, domerrors.ErrReservationInUse):
		return apiError{http.StatusConflict, ErrCodeConflict, domerrors.ErrReservationInUse.Error()}
	case errors.Is(err, domerrors.ErrIdentityCreationFailed):
		return apiError{http.StatusBadGateway, ErrCodeProviderUnavailable, domerrors.ErrIdentityCreationFailed.Error()}
	default:
		return apiError{http.StatusInternalServerError, ErrCodeInternal, "internal error"}
	}
}
