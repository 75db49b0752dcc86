package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/middleware"
)

// Error codes carried in the envelope.
const (
	CodeUnauthorized    = "unauthorized"
	CodeInvalidToken    = "invalid_token"
	CodeExpiredToken    = "expired_token"
	CodeRateLimited     = "rate_limited"
	CodeValidationError = "validation_error"
	CodeUnavailable     = "unavailable"
	CodeNotFound        = "not_found"
	CodeInternalError   = "internal_error"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:      code,
		Message:   message,
		RequestID: RequestIDFromContext(r.Context()),
	}})
}

// writeEngineError maps an Engine error onto the envelope.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var limited *goSession.RateLimitError

	switch {
	case errors.Is(err, middleware.ErrMissingBearer):
		writeError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Missing bearer token")
	case errors.Is(err, goSession.ErrExpiredToken):
		writeError(w, r, http.StatusUnauthorized, CodeExpiredToken, "Session token expired")
	case errors.Is(err, goSession.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, CodeInvalidToken, "Invalid session token")
	case errors.As(err, &limited):
		w.Header().Set("Retry-After", strconv.Itoa(limited.RetryAfterSeconds))
		writeError(w, r, http.StatusTooManyRequests, CodeRateLimited, "Too many session requests")
	case errors.Is(err, goSession.ErrInvalidInstallID):
		writeError(w, r, http.StatusUnprocessableEntity, CodeValidationError, "Request validation failed")
	case errors.Is(err, goSession.ErrRateLimiterUnavailable), errors.Is(err, goSession.ErrEngineNotReady):
		writeError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "Session service unavailable")
	default:
		s.logger.ErrorContext(r.Context(), "unhandled_error",
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, r, http.StatusInternalServerError, CodeInternalError, "Internal server error")
	}
}

func (s *Server) sessionError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeEngineError(w, r, err)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, CodeNotFound, "Not found")
}
