package goSession

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/keyring"
	"github.com/MrEthical07/goSession/secretpolicy"
)

// Config is the complete engine configuration. Start from [DefaultConfig],
// override fields, and pass it to [Builder.WithConfig].
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	// Environment selects the secret policy. "", dev, development, local, test
	// and testing are non-production; every other value is production-like.
	Environment  string `yaml:"environment"`
	BuildVersion string `yaml:"build_version"`

	Token     TokenConfig     `yaml:"token"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Audit     AuditConfig     `yaml:"audit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls token minting and verification.
//
// When SigningKeys is empty the ring holds {ActiveKeyID: Secret}. When it is
// set, it must contain ActiveKeyID and Secret is not used.
type TokenConfig struct {
	Issuer      string            `yaml:"issuer"`
	Audience    string            `yaml:"audience"`
	ActiveKeyID string            `yaml:"active_kid"`
	Secret      string            `yaml:"secret"`
	SigningKeys map[string]string `yaml:"signing_keys"`
	SessionTTL  time.Duration     `yaml:"session_ttl"`
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

const (
	// RateLimitBackendMemory keeps windows in process memory.
	RateLimitBackendMemory = "memory"
	// RateLimitBackendRedis shares windows through Redis.
	RateLimitBackendRedis = "redis"
)

// RateLimitConfig controls the issuance limiter.
type RateLimitConfig struct {
	Backend        string        `yaml:"backend"`
	PerIP          int           `yaml:"per_ip"`
	PerInstall     int           `yaml:"per_install"`
	Window         time.Duration `yaml:"window"`
	RedisPrefix    string        `yaml:"redis_prefix"`
	MaxTrackedKeys int           `yaml:"max_tracked_keys"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process metric collection.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

const maxSessionTTL = 24 * time.Hour

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the development defaults: an in-memory limiter, a one
// hour session, and no configured secret (one is generated at build time).
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Environment: "development",
		Token: TokenConfig{
			Issuer:      "gosession",
			Audience:    "gosession-mobile",
			ActiveKeyID: "v2-default",
			SessionTTL:  time.Hour,
		},
		RateLimit: RateLimitConfig{
			Backend:        RateLimitBackendMemory,
			PerIP:          30,
			PerInstall:     10,
			Window:         60 * time.Second,
			RedisPrefix:    "gs",
			MaxTrackedKeys: 10000,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Token.SigningKeys != nil {
		out.Token.SigningKeys = make(map[string]string, len(cfg.Token.SigningKeys))
		for kid, secret := range cfg.Token.SigningKeys {
			out.Token.SigningKeys[kid] = secret
		}
	}
	return out
}

// ProductionLike reports whether the configured environment is treated as
// production by the secret policy.
func (c *Config) ProductionLike() bool {
	return secretpolicy.IsProductionLike(c.Environment)
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks every field and the key material. Every returned error
// wraps [ErrConfiguration].
//
// Validate never generates a secret; a non-production config with no key
// material is valid and gets an ephemeral secret from [Builder.Build].
func (c *Config) Validate() error {
	return configError(c.validate())
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Token.Issuer) == "" {
		return errors.New("Token Issuer must be non-empty")
	}
	if strings.TrimSpace(c.Token.Audience) == "" {
		return errors.New("Token Audience must be non-empty")
	}
	if strings.TrimSpace(c.Token.ActiveKeyID) == "" {
		return errors.New("Token ActiveKeyID must be non-empty")
	}
	if c.Token.SessionTTL <= 0 {
		return errors.New("Token SessionTTL must be > 0")
	}
	if c.Token.SessionTTL > maxSessionTTL {
		return fmt.Errorf("Token SessionTTL must be <= %s", maxSessionTTL)
	}

	if c.RateLimit.PerIP <= 0 {
		return errors.New("RateLimit PerIP must be > 0")
	}
	if c.RateLimit.PerInstall <= 0 {
		return errors.New("RateLimit PerInstall must be > 0")
	}
	if c.RateLimit.Window < time.Second {
		return errors.New("RateLimit Window must be >= 1s")
	}
	if c.RateLimit.MaxTrackedKeys < 0 {
		return errors.New("RateLimit MaxTrackedKeys must be >= 0")
	}
	switch c.RateLimit.Backend {
	case RateLimitBackendMemory:
	case RateLimitBackendRedis:
		if strings.TrimSpace(c.RateLimit.RedisPrefix) == "" {
			return errors.New("RateLimit RedisPrefix must be non-empty for the redis backend")
		}
	default:
		return fmt.Errorf("RateLimit Backend %q is not supported", c.RateLimit.Backend)
	}

	if c.Audit.BufferSize < 0 {
		return errors.New("Audit BufferSize must be >= 0")
	}

	return c.validateKeyMaterial()
}

func (c *Config) validateKeyMaterial() error {
	if len(c.Token.SigningKeys) > 0 {
		if _, err := keyring.New(c.Token.SigningKeys, c.Token.ActiveKeyID, ""); err != nil {
			return err
		}
		return secretpolicy.ValidateSigningKeys(c.Environment, c.Token.SigningKeys)
	}

	if !c.ProductionLike() {
		return nil
	}
	_, _, err := secretpolicy.ResolveSecret(c.Environment, c.Token.Secret)
	return err
}
