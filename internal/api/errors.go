package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/skybridge/internal/session"
	"github.com/nerrad567/skybridge/internal/vivint"
)

// Error is the structured error response body.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeUpstream     = "upstream_error"
	ErrCodeInternal     = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeUpstreamError maps an upstream failure onto the gateway's error
// contract: client mistakes the cloud rejected come back as 400,
// expired sessions as 401, admin gates as 403, and everything else the
// cloud did wrong as 502.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var apiErr *vivint.APIError
	var authErr *vivint.AuthError

	switch {
	case errors.Is(err, vivint.ErrNotSupported):
		writeBadRequest(w, err.Error())
	case errors.Is(err, vivint.ErrMfaRequired):
		writeUnauthorized(w, "session expired, log in again")
	case errors.As(err, &authErr):
		writeUnauthorized(w, "session expired, log in again")
	case errors.As(err, &apiErr):
		switch apiErr.StatusCode {
		case http.StatusBadRequest:
			writeBadRequest(w, apiErr.Message)
		case http.StatusForbidden:
			writeError(w, http.StatusForbidden, ErrCodeForbidden, apiErr.Message)
		default:
			writeError(w, http.StatusBadGateway, ErrCodeUpstream, apiErr.Message)
		}
	case errors.Is(err, session.ErrNotFound):
		writeUnauthorized(w, "session expired, log in again")
	default:
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "upstream request failed")
	}
}
