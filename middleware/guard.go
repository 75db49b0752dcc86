package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// ErrMissingBearer is passed to the error handler when the request carries no
// usable bearer token.
var ErrMissingBearer = errors.New("missing bearer token")

// ErrorHandler writes the response for a request the guard rejected. err is
// [ErrMissingBearer] or an error returned by [goSession.Engine.Decode].
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims injected by [RequireSession].
func ClaimsFromContext(ctx context.Context) (goSession.SessionClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(goSession.SessionClaims)
	return claims, ok
}

// RequireSession returns middleware that verifies the bearer session token
// and injects its claims into the request context. A nil onError answers
// every rejection with a plain 401.
//
// The client IP from [ClientIP] is attached to the context before Decode runs,
// so engine audit events carry it.
func RequireSession(engine *goSession.Engine, onError ErrorHandler) func(http.Handler) http.Handler {
	if onError == nil {
		onError = plainUnauthorized
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				onError(w, r, goSession.ErrEngineNotReady)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				onError(w, r, ErrMissingBearer)
				return
			}

			ctx := goSession.WithClientIP(r.Context(), ClientIP(r))
			claims, err := engine.Decode(ctx, token)
			if err != nil {
				onError(w, r, err)
				return
			}

			ctx = context.WithValue(ctx, claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the first X-Forwarded-For entry, else the host part of the
// peer address, else "unknown".
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if host != "" {
			return host
		}
	}
	return "unknown"
}

func bearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}

func plainUnauthorized(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
