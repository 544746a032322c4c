// Package handler implements the HTTP handlers of the risk engine API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/freelanceshield/shieldd/internal/domain"
)

// writeJSON marshals v as JSON and writes it with the given status code. If
// marshaling fails, it falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps sentinel and validation errors to HTTP status codes.
// Unmatched errors become an opaque 500 so internals do not leak.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "not authorized")
	case errors.Is(err, domain.ErrInvalidClaim):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInsufficientLiquidity):
		writeError(w, http.StatusConflict, "pool cannot fund this claim")
	case errors.Is(err, domain.ErrDuplicateVote):
		writeError(w, http.StatusConflict, "arbitrator has already voted")
	case errors.Is(err, domain.ErrClaimFinalized):
		writeError(w, http.StatusConflict, "claim is already finalized")
	case errors.Is(err, domain.ErrArbitrationIncomplete):
		writeError(w, http.StatusConflict, "arbitration quorum not reached")
	case errors.Is(err, domain.ErrArbitrationNotRequired):
		writeError(w, http.StatusConflict, "claim is not in arbitration")
	case errors.Is(err, domain.ErrLockHeld):
		writeError(w, http.StatusServiceUnavailable, "another payout is in progress, retry")
	default:
		logger.Error("handler: internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// parseListOpts extracts standard pagination parameters from the query
// string. Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// logHandler attaches the handler name as a slog field.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
