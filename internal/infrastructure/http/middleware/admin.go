package middleware

import (
	"crypto/subtle"
	"net/http"
)

// AdminSecretHeader carries the operator secret for /admin/*.
const AdminSecretHeader = "X-Minecollab-Admin-Secret"

// RequireAdminSecret returns a middleware that requires AdminSecretHeader to match the given secret.
// If secret is empty, all requests are rejected with 401.
func RequireAdminSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeErr(w, http.StatusUnauthorized, "unauthorized", "admin API not configured (MINECOLLAB_ADMIN_SECRET)")
				return
			}
			if subtle.ConstantTimeCompare([]byte(r.Header.Get(AdminSecretHeader)), []byte(secret)) != 1 {
				writeErr(w, http.StatusUnauthorized, "unauthorized", "invalid or missing admin secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
