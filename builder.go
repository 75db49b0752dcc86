package goSession

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/MrEthical07/goSession/clock"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/keyring"
	"github.com/MrEthical07/goSession/secretpolicy"
	"github.com/MrEthical07/goSession/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	clock     clock.Clock
	logger    *slog.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used by the redis rate-limit backend. It is
// required when RateLimit.Backend is "redis" and ignored otherwise.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithClock overrides the engine clock. Tests pass a *clock.Fake.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// WithLogger sets the structured logger. The default discards output.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit destination. Events flow only when
// Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the decode latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, resolves the signing secret, and returns
// a ready Engine. Every configuration failure wraps [ErrConfiguration].
//
// In a non-production environment with no configured key material Build
// generates a random secret. Tokens signed with it do not survive a restart.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Backend == RateLimitBackendRedis && b.redis == nil {
		return nil, configError(errors.New("redis rate limit backend requires a redis client"))
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clk := b.clock
	if clk == nil {
		clk = clock.Real()
	}

	for _, w := range cfg.Lint() {
		logger.Warn("config lint", "code", w.Code, "severity", w.Severity.String(), "message", w.Message)
	}

	// -------- KEY MATERIAL --------
	var (
		fallback  string
		ephemeral bool
	)
	if len(cfg.Token.SigningKeys) == 0 {
		resolved, generated, err := secretpolicy.ResolveSecret(cfg.Environment, cfg.Token.Secret)
		if err != nil {
			return nil, configError(err)
		}
		fallback, ephemeral = resolved, generated
	}
	ring, err := keyring.New(cfg.Token.SigningKeys, cfg.Token.ActiveKeyID, fallback)
	if err != nil {
		return nil, configError(err)
	}
	// The config copy kept by the engine never holds secrets.
	cfg.Token.Secret = ""
	cfg.Token.SigningKeys = nil

	if ephemeral {
		logger.Warn("generated ephemeral session secret",
			"environment", cfg.Environment,
			"kid", ring.ActiveKeyID(),
		)
	}

	manager, err := token.NewManager(token.Config{
		Issuer:   cfg.Token.Issuer,
		Audience: cfg.Token.Audience,
		Ring:     ring,
		Clock:    clk,
	})
	if err != nil {
		return nil, configError(err)
	}

	// -------- RATE LIMITER --------
	limiterCfg := rate.Config{
		PerIP:          cfg.RateLimit.PerIP,
		PerInstall:     cfg.RateLimit.PerInstall,
		Window:         cfg.RateLimit.Window,
		MaxTrackedKeys: cfg.RateLimit.MaxTrackedKeys,
		Prefix:         strings.TrimSpace(cfg.RateLimit.RedisPrefix),
	}
	var limiter rate.Limiter
	switch cfg.RateLimit.Backend {
	case RateLimitBackendRedis:
		limiter, err = rate.NewRedis(b.redis, limiterCfg)
	default:
		limiter, err = rate.NewMemory(limiterCfg, clk)
	}
	if err != nil {
		return nil, configError(err)
	}

	engine := &Engine{
		config:          cfg,
		manager:         manager,
		limiter:         limiter,
		clock:           clk,
		logger:          logger,
		keyIDs:          ring.KeyIDs(),
		ephemeralSecret: ephemeral,
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
