package rate

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Limiter admits or rejects one issuance attempt.
//
// Check returns nil when both dimensions admit the request, an
// [*ExceededError] when one rejects it, and an error wrapping
// [ErrBackendUnavailable] when the backing store fails.
type Limiter interface {
	Check(ctx context.Context, clientIP, installID string) error
}

// Config holds limiter tuning parameters.
type Config struct {
	PerIP      int
	PerInstall int
	Window     time.Duration

	// MaxTrackedKeys is the per-dimension soft cap after which the in-memory
	// limiter sweeps elapsed windows. Zero disables sweeping.
	MaxTrackedKeys int

	// Prefix namespaces Redis keys.
	Prefix string
}

func (c Config) validate() error {
	if c.PerIP <= 0 || c.PerInstall <= 0 {
		return errors.New("rate limits must be positive")
	}
	if c.Window < time.Second {
		return errors.New("rate window must be at least one second")
	}
	if c.MaxTrackedKeys < 0 {
		return errors.New("max tracked keys must not be negative")
	}
	return nil
}

func ipKey(prefix, ip string) string {
	return keyBase(prefix) + "ip:" + ip
}

func installKey(prefix, installID string) string {
	return keyBase(prefix) + "install:" + installID
}

func keyBase(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix) + 6)
	b.WriteByte('{')
	b.WriteString(prefix)
	b.WriteString("}:rl:")
	return b.String()
}
