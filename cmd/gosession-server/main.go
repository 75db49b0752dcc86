// Command gosession-server serves anonymous session issuance over HTTP.
//
// Run:
//
//	go run ./cmd/gosession-server --config gosession.yaml --addr :8080
//
// Configuration comes from the YAML file and GOSESSION_* environment
// variables. With the redis rate limit backend, --redis-addr (or REDIS_ADDR)
// names the shared Redis.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/httpapi"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
)

const shutdownTimeout = 10 * time.Second

type options struct {
	configPath string
	addr       string
	redisAddr  string
	logLevel   string
	metrics    bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "gosession-server: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("gosession-server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&opts.addr, "addr", ":8080", "listen address")
	fs.StringVar(&opts.redisAddr, "redis-addr", "", "redis address for the redis rate limit backend (default $REDIS_ADDR)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.BoolVar(&opts.metrics, "metrics", false, "enable metrics and serve them at /metrics")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.redisAddr == "" {
		opts.redisAddr = os.Getenv("REDIS_ADDR")
	}
	return opts, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func run(ctx context.Context, opts options, logOut io.Writer) error {
	level, err := parseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level}))

	cfg, err := goSession.LoadConfig(opts.configPath, nil)
	if err != nil {
		return err
	}
	if opts.metrics {
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true
	}

	builder := goSession.New().WithConfig(cfg).WithLogger(logger)
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(goSession.NewJSONWriterSink(os.Stdout))
	}
	if cfg.RateLimit.Backend == goSession.RateLimitBackendRedis {
		if opts.redisAddr == "" {
			return errors.New("redis rate limit backend requires --redis-addr or REDIS_ADDR")
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{opts.redisAddr}})
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", opts.redisAddr, err)
		}
		builder = builder.WithRedis(client)
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	logSecurityReport(ctx, logger, engine.SecurityReport())

	handlerOpts := httpapi.Options{
		Engine:      engine,
		Logger:      logger,
		Version:     cfg.BuildVersion,
		Environment: cfg.Environment,
	}
	if cfg.Metrics.Enabled {
		handlerOpts.Metrics = prometheus.NewPrometheusExporter(engine).Handler()
	}

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           httpapi.NewHandler(handlerOpts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", opts.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func logSecurityReport(ctx context.Context, logger *slog.Logger, r goSession.SecurityReport) {
	attrs := []any{
		"environment", r.Environment,
		"build_version", r.BuildVersion,
		"production_like", r.ProductionLike,
		"issuer", r.Issuer,
		"audience", r.Audience,
		"active_kid", r.ActiveKeyID,
		"key_ids", r.KeyIDs,
		"ephemeral_secret", r.EphemeralSecret,
		"session_ttl", r.SessionTTL.String(),
		"rate_limit_backend", r.RateLimit.Backend,
		"rate_limit_per_ip", r.RateLimit.PerIP,
		"rate_limit_per_install", r.RateLimit.PerInstall,
		"rate_limit_window", r.RateLimit.Window.String(),
		"audit_enabled", r.AuditEnabled,
		"metrics_enabled", r.MetricsEnabled,
		"lint", r.LintWarningCodes,
	}
	if len(r.LintWarningCodes) > 0 && r.ProductionLike {
		logger.WarnContext(ctx, "security report", attrs...)
		return
	}
	logger.InfoContext(ctx, "security report", attrs...)
}
