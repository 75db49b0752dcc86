package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type requestIDContextKey struct{}

// RequestIDFromContext returns the id assigned by the request middleware, or
// "unknown" outside it.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey{}).(string); ok && id != "" {
		return id
	}
	return "unknown"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// requestContext assigns the request id, echoes it, and logs one
// request_complete line per request.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()

		ctx := context.WithValue(r.Context(), requestIDContextKey{}, id)
		next.ServeHTTP(rec, r.WithContext(ctx))

		s.logger.InfoContext(ctx, "request_complete",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", rec.status,
			"latency_ms", time.Since(started).Milliseconds(),
		)
	})
}
