package rate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited is matched by every [*ExceededError].
	ErrRateLimited = errors.New("rate limited")
	// ErrBackendUnavailable wraps limiter storage failures.
	ErrBackendUnavailable = errors.New("rate limiter backend unavailable")
)

// Dimension names the counter that rejected a request.
type Dimension string

const (
	DimensionIP      Dimension = "ip"
	DimensionInstall Dimension = "install_id"
)

// ExceededError reports which dimension rejected a request and how long the
// caller should wait.
type ExceededError struct {
	Dimension  Dimension
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limited on %s, retry after %ds", e.Dimension, e.RetryAfterSeconds())
}

// Is reports ErrRateLimited as a match.
func (e *ExceededError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds, at least 1.
func (e *ExceededError) RetryAfterSeconds() int {
	return retrySeconds(e.RetryAfter)
}

func retrySeconds(remaining time.Duration) int {
	secs := int((remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}
