package handlers

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
)

// Audit event names.
const (
	EventAccountProvisioned   = "account.provisioned"
	EventAccountRenamed       = "account.renamed"
	EventReleaseWarning       = "account.release_warning"
	EventLogin                = "account.login"
	EventEmailVerified        = "account.email_verified"
	EventReservationReclaimed = "reservation.reclaimed"
)

// AuditLog logs account events (account_id, username, IP).
func AuditLog(log zerolog.Logger, r *http.Request, ev ports.AuditEvent) {
	e := log.Info()
	if !ev.Success {
		e = log.Warn()
	}
	e.
		Str("event", ev.Event).
		Str("account_id", ev.AccountID).
		Str("username", ev.Username).
		Str("ip", ev.IP).
		Str("request_id", middleware.GetReqID(r.Context())).
		Bool("success", ev.Success)
	if ev.Err != "" {
		e.Str("error", ev.Err)
	}
	e.Msg("account_audit")
}

// AuditEmit logs the event and, if enqueuer is non-nil, queues it for webhook delivery.
func AuditEmit(log zerolog.Logger, r *http.Request, enqueuer ports.TaskEnqueuer, ev ports.AuditEvent) {
	ev.IP = getClientIP(r)
	AuditLog(log, r, ev)
	if enqueuer == nil {
		return
	}
	if err := enqueuer.EnqueueWebhook(r.Context(), ev.Event, ev); err != nil {
		log.Warn().Err(err).Str("event", ev.Event).Msg("enqueue audit webhook failed")
	}
}

// getClientIP relies on chi's RealIP middleware having rewritten RemoteAddr.
func getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
