package httpapi

import (
	"io"
	"log/slog"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/middleware"
)

const defaultServiceName = "gosession"

// Options configures [NewHandler].
type Options struct {
	Engine *goSession.Engine
	Logger *slog.Logger

	// ServiceName is reported by the health route. Empty means "gosession".
	ServiceName string
	Version     string
	Environment string

	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
}

// Server holds the routes. It is an http.Handler.
type Server struct {
	engine  *goSession.Engine
	logger  *slog.Logger
	service string
	version string
	env     string
	handler http.Handler
}

// NewHandler returns the routed handler wrapped in request-id and access-log
// middleware.
func NewHandler(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	service := opts.ServiceName
	if service == "" {
		service = defaultServiceName
	}

	s := &Server{
		engine:  opts.Engine,
		logger:  logger,
		service: service,
		version: opts.Version,
		env:     opts.Environment,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.health)
	mux.HandleFunc("POST /v1/sessions/anonymous", s.createAnonymousSession)
	mux.Handle("GET /v1/sessions/current",
		middleware.RequireSession(s.engine, s.sessionError)(http.HandlerFunc(s.currentSession)),
	)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	mux.HandleFunc("/", s.notFound)

	s.handler = s.requestContext(mux)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
