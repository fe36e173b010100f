package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	"github.com/aadyantmaity/minecollab/internal/application/reconcile"
	"github.com/aadyantmaity/minecollab/internal/domain"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

// AdminHandler handles /admin/* (reservation inspection and reclaim, provisioning journal).
// Requires X-Minecollab-Admin-Secret.
type AdminHandler struct {
	reconciler *reconcile.Reconciler
	journal    ports.ProvisioningJournal
	enqueuer   ports.TaskEnqueuer
	log        zerolog.Logger
}

// NewAdminHandler creates the admin handler. journal may be nil when provisioning is not journaled.
func NewAdminHandler(reconciler *reconcile.Reconciler, journal ports.ProvisioningJournal, enqueuer ports.TaskEnqueuer, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{reconciler: reconciler, journal: journal, enqueuer: enqueuer, log: log}
}

// ScanReservations handles GET /admin/reservations. Returns { "findings": [...] } for every
// reservation that does not match its owner's profile.
func (h *AdminHandler) ScanReservations(w http.ResponseWriter, r *http.Request) {
	findings, err := h.reconciler.Scan(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("scan reservations failed")
		writeErr(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
		return
	}
	if findings == nil {
		findings = []*reconcile.Finding{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"findings": findings})
}

// InspectReservation handles GET /admin/reservations/{username}.
func (h *AdminHandler) InspectReservation(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	f, err := h.reconciler.Inspect(r.Context(), username)
	if err != nil {
		h.writeReconcileErr(w, err, "inspect reservation failed")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// ReclaimReservation handles DELETE /admin/reservations/{username}. Only orphaned or stale
// reservations are deleted; others get 409.
func (h *AdminHandler) ReclaimReservation(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	f, err := h.reconciler.Reclaim(r.Context(), username)
	if err != nil {
		if errors.Is(err, domerrors.ErrReservationInUse) && f != nil {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":   err.Error(),
				"code":    ErrCodeConflict,
				"finding": f,
			})
			return
		}
		h.writeReconcileErr(w, err, "reclaim reservation failed")
		return
	}
	AuditEmit(h.log, r, h.enqueuer, ports.AuditEvent{
		Event:     EventReservationReclaimed,
		AccountID: f.Owner.String(),
		Username:  f.UsernameLower,
		Success:   true,
	})
	writeJSON(w, http.StatusOK, f)
}

// GetProvisioning handles GET /admin/provisioning/{account_id}.
func (h *AdminHandler) GetProvisioning(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeErr(w, http.StatusNotFound, ErrCodeNotFound, "provisioning journal disabled")
		return
	}
	id := domain.AccountID(chi.URLParam(r, "account_id"))
	rec, err := h.journal.Get(r.Context(), id)
	if err != nil {
		h.writeReconcileErr(w, err, "load provisioning record failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *AdminHandler) writeReconcileErr(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, domerrors.ErrNotFound) {
		writeErr(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	h.log.Error().Err(err).Msg(msg)
	writeErr(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
}
