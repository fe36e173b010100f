package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aadyantmaity/minecollab/internal/infrastructure/http/handlers"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/http/middleware"
)

// APIVersion is sent in the X-API-Version header.
const APIVersion = "1"

type RouterConfig struct {
	AccountsHandler  *handlers.AccountsHandler
	AuthHandler      *handlers.AuthHandler
	HealthHandler    *handlers.HealthHandler
	AdminHandler     *handlers.AdminHandler
	RequireJWT       func(http.Handler) http.Handler // bearer access token for /accounts/me/*
	RequireAdmin     func(http.Handler) http.Handler // X-Minecollab-Admin-Secret for /admin/*
	Log              zerolog.Logger
	Secure           func(http.Handler) http.Handler
	CORS             func(http.Handler) http.Handler
	IPRateLimit      func(http.Handler) http.Handler // signup, login, verify-email
	AccountRateLimit func(http.Handler) http.Handler // resend-verification, rename
	Metrics          bool                            // expose /metrics
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(loggerMiddleware(cfg.Log))
	r.Use(chimid.Recoverer)
	if cfg.Metrics {
		r.Use(middleware.PrometheusMiddleware)
	}
	if cfg.Secure != nil {
		r.Use(cfg.Secure)
	}
	if cfg.CORS != nil {
		r.Use(cfg.CORS)
	}
	r.Use(chimid.SetHeader("X-API-Version", APIVersion))
	r.Use(chimid.AllowContentType("application/json"))
	r.Use(chimid.SetHeader("Content-Type", "application/json"))

	ipLimit := orPassthrough(cfg.IPRateLimit)
	accountLimit := orPassthrough(cfg.AccountRateLimit)

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.ServeHTTP)
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
	}
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/accounts", func(r chi.Router) {
		r.With(ipLimit).Post("/", cfg.AccountsHandler.Signup)
		r.Group(func(r chi.Router) {
			r.Use(cfg.RequireJWT)
			r.Get("/me", cfg.AccountsHandler.Me)
			r.With(accountLimit).Put("/me/username", cfg.AccountsHandler.Rename)
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(ipLimit)
			r.Post("/login", cfg.AuthHandler.Login)
			r.Post("/verify-email", cfg.AuthHandler.VerifyEmail)
		})
		r.Group(func(r chi.Router) {
			r.Use(cfg.RequireJWT)
			r.Use(accountLimit)
			r.Post("/resend-verification", cfg.AuthHandler.ResendVerification)
		})
	})

	if cfg.AdminHandler != nil && cfg.RequireAdmin != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(cfg.RequireAdmin)
			r.Get("/reservations", cfg.AdminHandler.ScanReservations)
			r.Get("/reservations/{username}", cfg.AdminHandler.InspectReservation)
			r.Delete("/reservations/{username}", cfg.AdminHandler.ReclaimReservation)
			r.Get("/provisioning/{account_id}", cfg.AdminHandler.GetProvisioning)
		})
	}

	return r
}

func orPassthrough(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

func loggerMiddleware(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimid.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("request_id", chimid.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Msg("request")
		})
	}
}
