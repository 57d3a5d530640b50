package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/evcraddock/house-market/internal/auth"
	"github.com/evcraddock/house-market/internal/errs"
	"github.com/evcraddock/house-market/internal/logging"
	"github.com/evcraddock/house-market/internal/policy"
)

const maxJSONBody = 1 << 20

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	apiJSON(w, map[string]string{"error": msg}, code)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "err", err)
	}
}

// statusFor maps a service error to an HTTP status and client message.
// Unrecognized errors become a generic 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrBadCredentials):
		return http.StatusUnauthorized, errs.ErrBadCredentials.Error()
	case errors.Is(err, errs.ErrUnconfirmed):
		return http.StatusForbidden, errs.ErrUnconfirmed.Error()
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, errs.ErrInvalid):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errs.ErrCodeMismatch):
		return http.StatusBadRequest, errs.ErrCodeMismatch.Error()
	case errors.Is(err, errs.ErrCodeExpired):
		return http.StatusBadRequest, errs.ErrCodeExpired.Error()
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, "too many attempts, try again later"
	}
	return http.StatusInternalServerError, "internal error"
}

// apiFail writes err as a JSON error, logging unexpected failures.
func apiFail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", logging.RequestID(r.Context()),
			"err", err,
		)
	}
	apiError(w, msg, code)
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", errs.ErrInvalid)
		}
		return fmt.Errorf("%w: malformed JSON: %v", errs.ErrInvalid, err)
	}
	return nil
}

// subject returns the policy subject for the request's user.
func subject(r *http.Request) policy.Subject {
	id, _ := auth.UserIDFromContext(r.Context())
	return policy.Subject{UserID: id}
}
