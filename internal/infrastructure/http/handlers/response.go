package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

// errorBody is the JSON error envelope. PartialState and Retryable are only set for saga failures.
type errorBody struct {
	Error        string `json:"error"`
	Code         string `json:"code"`
	PartialState *bool  `json:"partial_state,omitempty"`
	Retryable    *bool  `json:"retryable,omitempty"`
}

// writeErr sends JSON { "error": message, "code": errCode }.
func writeErr(w http.ResponseWriter, code int, errCode string, message string) {
	writeJSON(w, code, errorBody{Error: message, Code: errCode})
}

// writeDomainErr maps err through mapError and adds the saga fields clients act on.
func writeDomainErr(w http.ResponseWriter, err error) {
	m := mapError(err)
	body := errorBody{Error: m.message, Code: m.code}

	var perr *domerrors.ProvisioningError
	if errors.As(err, &perr) {
		partial := perr.PartialState()
		body.PartialState = &partial
	}
	if errors.Is(err, domerrors.ErrRenameFailed) || errors.Is(err, domerrors.ErrProvisioningFailed) {
		retryable := domerrors.IsRetryable(err)
		body.Retryable = &retryable
	}
	var locked *domerrors.LockedError
	if errors.As(err, &locked) {
		w.Header().Set("Retry-After", strconv.Itoa(locked.RetryAfterSeconds))
	}
	writeJSON(w, m.status, body)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
