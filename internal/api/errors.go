package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/engine"
	"github.com/talgya/studio-league/internal/store"
)

// ErrorBody is the JSON shape of a failed operation.
type ErrorBody struct {
	Error string      `json:"error"`
	Code  string      `json:"code"`
	Rule  engine.Rule `json:"rule,omitempty"`
}

// writeError maps the engine taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, op string, err error) {
	body := ErrorBody{Error: err.Error()}
	var status int

	var pv *engine.PolicyViolationError
	var dup *agency.DuplicateMemberError
	switch {
	case errors.Is(err, engine.ErrNotFound):
		status, body.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, engine.ErrInsufficientFunds):
		status, body.Code = http.StatusPaymentRequired, "insufficient_funds"
	case errors.As(err, &pv):
		status, body.Code, body.Rule = http.StatusConflict, "policy_violation", pv.Rule
	case errors.Is(err, store.ErrConflict):
		status, body.Code = http.StatusConflict, "version_conflict"
	case errors.Is(err, engine.ErrCommitFailure):
		status, body.Code = http.StatusServiceUnavailable, "commit_failure"
	case errors.As(err, &dup):
		status, body.Code = http.StatusInternalServerError, "corrupt_state"
	default:
		status, body.Code = http.StatusInternalServerError, "internal"
	}

	if status >= http.StatusInternalServerError {
		slog.Error("operation failed", "op", op, "error", err)
	} else {
		slog.Debug("operation refused", "op", op, "code", body.Code, "error", err)
	}
	writeJSONStatus(w, status, body)
}
