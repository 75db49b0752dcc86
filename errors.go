package goSession

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/token"
)

var (
	// ErrInvalidToken is returned by Decode for malformed, tampered,
	// unverifiable, or not-yet-valid tokens. It is the same value as
	// token.ErrInvalid.
	ErrInvalidToken = token.ErrInvalid
	// ErrExpiredToken is returned by Decode for an otherwise valid token whose
	// expiry has passed. It is the same value as token.ErrExpired.
	ErrExpiredToken = token.ErrExpired
	// ErrRateLimited is matched by every *RateLimitError.
	ErrRateLimited = errors.New("session issuance rate limited")
	// ErrRateLimiterUnavailable is returned when the limiter backend fails.
	// Issuance fails closed.
	ErrRateLimiterUnavailable = errors.New("rate limiter unavailable")
	// ErrConfiguration wraps every configuration, key ring, and secret policy
	// violation found by Config.Validate or Builder.Build.
	ErrConfiguration = errors.New("invalid session configuration")
	// ErrEngineNotReady is returned by methods called on a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidInstallID is returned when the installation id is empty.
	ErrInvalidInstallID = errors.New("install id must not be empty")
)

// RateLimitError reports the dimension that rejected an issuance attempt and
// the whole seconds until its window closes. RetryAfterSeconds is at least 1.
type RateLimitError struct {
	Dimension         string
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited on %s, retry after %ds", e.Dimension, e.RetryAfterSeconds)
}

// Is reports ErrRateLimited as a match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

const (
	// RateLimitDimensionIP names the per-client-IP dimension.
	RateLimitDimensionIP = "ip"
	// RateLimitDimensionInstall names the per-installation dimension.
	RateLimitDimensionInstall = "install_id"
)

func configError(err error) error {
	if err == nil || errors.Is(err, ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrConfiguration, err)
}
