package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minecollab_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	authAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minecollab_auth_attempts_total",
			Help: "Total login and verification attempts by outcome",
		},
		[]string{"event", "success"},
	)
	sagaOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minecollab_saga_outcomes_total",
			Help: "Signup and rename saga results",
		},
		[]string{"saga", "outcome"},
	)
	compensationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minecollab_compensation_failures_total",
			Help: "Signups whose compensation left partial state",
		},
	)
	releaseWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minecollab_release_warnings_total",
			Help: "Renames whose previous username could not be released",
		},
	)
)

// PrometheusMiddleware records request duration by chi route pattern.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		httpRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Observe(time.Since(start).Seconds())
	})
}

// RecordAuthAttempt records a login or verification event.
func RecordAuthAttempt(event string, success bool) {
	authAttempts.WithLabelValues(event, strconv.FormatBool(success)).Inc()
}

// RecordSagaOutcome counts a saga result, e.g. ("provision", "compensated").
func RecordSagaOutcome(saga, outcome string) {
	sagaOutcomes.WithLabelValues(saga, outcome).Inc()
}

func RecordCompensationFailure() {
	compensationFailures.Inc()
}

func RecordReleaseWarning() {
	releaseWarnings.Inc()
}
