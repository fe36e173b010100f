package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/aadyantmaity/minecollab/internal/application/auth"
	"github.com/aadyantmaity/minecollab/internal/application/ports"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/http/middleware"
)

type AuthHandler struct {
	login       *auth.Login
	verifyEmail *auth.VerifyEmail
	resend      *auth.ResendVerification
	enqueuer    ports.TaskEnqueuer
	validate    *validator.Validate
	log         zerolog.Logger
}

func NewAuthHandler(login *auth.Login, verifyEmail *auth.VerifyEmail, resend *auth.ResendVerification, enqueuer ports.TaskEnqueuer, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		login:       login,
		verifyEmail: verifyEmail,
		resend:      resend,
		enqueuer:    enqueuer,
		validate:    validator.New(),
		log:         log,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required,max=128"`
	}
	if err := decodeBody(w, r, h.validate, &body); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	result, err := h.login.Execute(r.Context(), auth.LoginInput{
		Email:    SanitizeEmail(body.Email),
		Password: body.Password,
	})
	if err != nil {
		middleware.RecordAuthAttempt("login", false)
		AuditLog(h.log, r, ports.AuditEvent{Event: EventLogin, IP: getClientIP(r), Err: err.Error()})
		if !errors.Is(err, domerrors.ErrInvalidCredentials) && !errors.Is(err, domerrors.ErrAccountLocked) {
			h.log.Error().Err(err).Msg("login failed")
		}
		writeDomainErr(w, err)
		return
	}
	middleware.RecordAuthAttempt("login", true)
	AuditLog(h.log, r, ports.AuditEvent{Event: EventLogin, AccountID: result.Account.ID.String(), IP: getClientIP(r), Success: true})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": result.AccessToken,
		"token_type":   "Bearer",
		"expires_in":   result.ExpiresIn,
		"account": map[string]interface{}{
			"id":             result.Account.ID.String(),
			"email":          result.Account.Email,
			"username":       result.Account.DisplayName,
			"email_verified": result.Account.EmailVerified,
		},
	})
}

// VerifyEmail handles POST /auth/verify-email. Body: { "token" }.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token" validate:"required,max=256"`
	}
	if err := decodeBody(w, r, h.validate, &body); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	result, err := h.verifyEmail.Execute(r.Context(), auth.VerifyEmailInput{Token: body.Token})
	if err != nil {
		middleware.RecordAuthAttempt("verify_email", false)
		if !errors.Is(err, domerrors.ErrEmailVerificationInvalid) {
			h.log.Error().Err(err).Msg("verify email failed")
		}
		writeDomainErr(w, err)
		return
	}
	middleware.RecordAuthAttempt("verify_email", true)
	AuditEmit(h.log, r, h.enqueuer, ports.AuditEvent{
		Event:     EventEmailVerified,
		AccountID: result.Account.ID.String(),
		Success:   true,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":             result.Account.ID.String(),
		"email_verified": true,
	})
}

// ResendVerification handles POST /auth/resend-verification for the logged-in account.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountFromContext(r.Context())
	if accountID.IsZero() {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	result, err := h.resend.Execute(r.Context(), auth.ResendVerificationInput{AccountID: accountID})
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID.String()).Msg("resend verification failed")
		writeDomainErr(w, err)
		return
	}
	if result.AlreadyVerified {
		writeJSON(w, http.StatusOK, map[string]string{"message": "email already verified"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "verification email sent"})
}
