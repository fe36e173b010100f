package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/aadyantmaity/minecollab/internal/application/identity"
	"github.com/aadyantmaity/minecollab/internal/application/ports"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/http/middleware"
)

// AccountsHandler handles /accounts (signup) and /accounts/me/* (JWT).
type AccountsHandler struct {
	provision *identity.Provisioner
	rename    *identity.RenameCoordinator
	accounts  ports.Authenticator
	profiles  ports.ProfileRepository
	enqueuer  ports.TaskEnqueuer
	validate  *validator.Validate
	log       zerolog.Logger
}

// NewAccountsHandler creates the account resource handler. enqueuer may be nil to skip audit webhooks.
func NewAccountsHandler(provision *identity.Provisioner, rename *identity.RenameCoordinator, accounts ports.Authenticator, profiles ports.ProfileRepository, enqueuer ports.TaskEnqueuer, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{
		provision: provision,
		rename:    rename,
		accounts:  accounts,
		profiles:  profiles,
		enqueuer:  enqueuer,
		validate:  validator.New(),
		log:       log,
	}
}

// AccountResponse is the JSON shape for a provisioned account (no credentials).
type AccountResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Signup handles POST /accounts. Body: { "email", "password", "username" }.
func (h *AccountsHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required"`
		Username string `json:"username" validate:"required,max=64"`
	}
	if err := decodeBody(w, r, h.validate, &body); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	result, err := h.provision.Execute(r.Context(), identity.ProvisionInput{
		Email:    SanitizeEmail(body.Email),
		Password: body.Password,
		Username: body.Username,
	})
	if err != nil {
		h.recordProvisionFailure(r, body.Username, err)
		writeDomainErr(w, err)
		return
	}
	middleware.RecordSagaOutcome("provision", "success")
	AuditEmit(h.log, r, h.enqueuer, ports.AuditEvent{
		Event:     EventAccountProvisioned,
		AccountID: result.Account.ID.String(),
		Username:  result.Profile.Username,
		Success:   true,
	})
	writeJSON(w, http.StatusCreated, AccountResponse{
		ID:            result.Account.ID.String(),
		Email:         result.Account.Email,
		Username:      result.Profile.Username,
		EmailVerified: result.Account.EmailVerified,
		CreatedAt:     result.Profile.CreatedAt,
		UpdatedAt:     result.Profile.UpdatedAt,
	})
}

func (h *AccountsHandler) recordProvisionFailure(r *http.Request, username string, err error) {
	outcome := "rejected"
	var perr *domerrors.ProvisioningError
	if errors.As(err, &perr) {
		outcome = "compensated"
		if perr.PartialState() {
			outcome = "compensation_failed"
			middleware.RecordCompensationFailure()
		}
	}
	middleware.RecordSagaOutcome("provision", outcome)
	if outcome == "rejected" {
		return
	}
	AuditEmit(h.log, r, h.enqueuer, ports.AuditEvent{
		Event:    EventAccountProvisioned,
		Username: username,
		Success:  false,
		Err:      err.Error(),
	})
}

// RenameResponse is the JSON shape for PUT /accounts/me/username. Warning is set when the previous
// username could not be released and stays blocked until an operator reclaims it.
type RenameResponse struct {
	Username         string `json:"username"`
	PreviousUsername string `json:"previous_username"`
	Released         bool   `json:"released"`
	Warning          string `json:"warning,omitempty"`
}

// Rename handles PUT /accounts/me/username. Body: { "username" }.
func (h *AccountsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountFromContext(r.Context())
	if accountID.IsZero() {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	var body struct {
		Username string `json:"username" validate:"required,max=64"`
	}
	if err := decodeBody(w, r, h.validate, &body); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	account, err := h.accounts.GetAccount(r.Context(), accountID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	result, err := h.rename.Execute(r.Context(), identity.RenameInput{Account: account, Username: body.Username})
	if err != nil {
		outcome := "rejected"
		if errors.Is(err, domerrors.ErrRenameFailed) {
			outcome = "failed"
			h.log.Error().Err(err).Str("account_id", accountID.String()).Msg("rename failed")
		}
		middleware.RecordSagaOutcome("rename", outcome)
		writeDomainErr(w, err)
		return
	}
	middleware.RecordSagaOutcome("rename", "success")
	AuditEmit(h.log, r, h.enqueuer, ports.AuditEvent{
		Event:     EventAccountRenamed,
		AccountID: accountID.String(),
		Username:  result.Profile.Username,
		Success:   true,
	})
	resp := RenameResponse{
		Username:         result.Profile.Username,
		PreviousUsername: result.PreviousUsername,
		Released:         result.Released,
	}
	if result.ReleaseWarning != nil {
		middleware.RecordReleaseWarning()
		resp.Warning = result.ReleaseWarning.Error()
		AuditEmit(h.log, r, h.enqueuer, ports.AuditEvent{
			Event:     EventReleaseWarning,
			AccountID: accountID.String(),
			Username:  result.ReleaseWarning.UsernameLower,
			Success:   false,
			Err:       result.ReleaseWarning.Error(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Me handles GET /accounts/me.
func (h *AccountsHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountFromContext(r.Context())
	if accountID.IsZero() {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	account, err := h.accounts.GetAccount(r.Context(), accountID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	profile, err := h.profiles.Get(r.Context(), accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID.String()).Msg("load profile failed")
		writeErr(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
		return
	}
	if profile == nil {
		writeDomainErr(w, domerrors.ErrProfileNotFound)
		return
	}
	writeJSON(w, http.StatusOK, AccountResponse{
		ID:            account.ID.String(),
		Email:         account.Email,
		Username:      profile.Username,
		EmailVerified: account.EmailVerified,
		CreatedAt:     profile.CreatedAt,
		UpdatedAt:     profile.UpdatedAt,
	})
}
