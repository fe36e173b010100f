package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aadyantmaity/minecollab/internal/domain"
)

type contextKey string

const accountContextKey contextKey = "account"

// WithAccount injects the authenticated account id into the context.
func WithAccount(ctx context.Context, id domain.AccountID) context.Context {
	return context.WithValue(ctx, accountContextKey, id)
}

// AccountFromContext returns the authenticated account id, or "" when the request is anonymous.
func AccountFromContext(ctx context.Context) domain.AccountID {
	id, _ := ctx.Value(accountContextKey).(domain.AccountID)
	return id
}

func writeErr(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": errCode})
}
