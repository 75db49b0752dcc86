package httpapi

import (
	"encoding/json"
	"net/http"
	"time"
	"unicode/utf8"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/middleware"
)

const maxRequestBody = 16 << 10

type healthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type anonymousSessionRequest struct {
	InstallID  string `json:"install_id"`
	AppVersion string `json:"app_version"`
	Platform   string `json:"platform"`
}

type anonymousSessionResponse struct {
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type currentSessionResponse struct {
	InstallID string    `json:"install_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (req anonymousSessionRequest) valid() bool {
	return lengthBetween(req.InstallID, 8, 128) &&
		lengthBetween(req.AppVersion, 1, 32) &&
		lengthBetween(req.Platform, 1, 32)
}

func lengthBetween(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Service:     s.service,
		Version:     s.version,
		Environment: s.env,
	})
}

func (s *Server) createAnonymousSession(w http.ResponseWriter, r *http.Request) {
	var req anonymousSessionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil || !req.valid() {
		writeError(w, r, http.StatusUnprocessableEntity, CodeValidationError, "Request validation failed")
		return
	}

	ctx := goSession.WithClientIP(r.Context(), middleware.ClientIP(r))
	tok, claims, err := s.engine.IssueSession(ctx, req.InstallID)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, anonymousSessionResponse{
		SessionToken: tok,
		ExpiresAt:    claims.ExpiresAt,
	})
}

func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		s.writeEngineError(w, r, middleware.ErrMissingBearer)
		return
	}
	writeJSON(w, http.StatusOK, currentSessionResponse{
		InstallID: claims.InstallID,
		ExpiresAt: claims.ExpiresAt,
	})
}
