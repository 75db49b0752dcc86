package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/MrEthical07/goSession/clock"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/token"
)

// Engine issues and verifies anonymous session tokens and applies the
// issuance rate limit. Construct it with [Builder.Build].
//
// Engine methods are safe for concurrent use. The only mutable state is the
// rate limiter's window store and the metric counters.
type Engine struct {
	config          Config
	manager         *token.Manager
	limiter         rate.Limiter
	clock           clock.Clock
	logger          *slog.Logger
	audit           *auditDispatcher
	metrics         *Metrics
	keyIDs          []string
	ephemeralSecret bool
}

// Close flushes pending audit events. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events that never reached the sink.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Issue returns claims for installID expiring after the configured session TTL.
// It does not consult the rate limiter.
func (e *Engine) Issue(installID string) (SessionClaims, error) {
	if e == nil {
		return SessionClaims{}, ErrEngineNotReady
	}
	return e.IssueWithTTL(installID, e.config.Token.SessionTTL)
}

// IssueWithTTL returns claims for installID expiring ttl from now.
func (e *Engine) IssueWithTTL(installID string, ttl time.Duration) (SessionClaims, error) {
	if e == nil || e.manager == nil {
		return SessionClaims{}, ErrEngineNotReady
	}
	if installID == "" {
		return SessionClaims{}, ErrInvalidInstallID
	}
	return e.manager.Issue(installID, ttl)
}

// Encode signs claims with the active key.
func (e *Engine) Encode(claims SessionClaims) (string, error) {
	if e == nil || e.manager == nil {
		return "", ErrEngineNotReady
	}
	if claims.InstallID == "" {
		return "", ErrInvalidInstallID
	}
	return e.manager.Encode(claims)
}

// Decode verifies tokenStr and returns its claims.
//
// Errors match [ErrExpiredToken] for an expired token and [ErrInvalidToken]
// for every other rejection.
func (e *Engine) Decode(ctx context.Context, tokenStr string) (SessionClaims, error) {
	if e == nil || e.manager == nil {
		return SessionClaims{}, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	claims, err := e.manager.Decode(tokenStr)

	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricDecodeLatency, time.Since(start))
	}

	if err != nil {
		reason := rejectionReason(err)
		if reason == auditErrExpiredToken {
			e.metricInc(MetricTokenExpired)
		} else {
			e.metricInc(MetricTokenInvalid)
		}
		e.logger.DebugContext(ctx, "session token rejected", "reason", string(reason))
		e.emitAudit(ctx, AuditEventTokenRejected, "", clientIPFromContext(ctx), false, reason, nil)
		return SessionClaims{}, err
	}

	e.metricInc(MetricTokenDecoded)
	return claims, nil
}

// Check applies the issuance rate limit for one attempt from clientIP for
// installID.
//
// A rejection is a *RateLimitError matching [ErrRateLimited]. A backend
// failure matches [ErrRateLimiterUnavailable].
func (e *Engine) Check(ctx context.Context, clientIP, installID string) error {
	if e == nil || e.limiter == nil {
		return ErrEngineNotReady
	}
	if installID == "" {
		return ErrInvalidInstallID
	}
	if clientIP == "" {
		clientIP = unknownClientIP
	}

	err := e.limiter.Check(ctx, clientIP, installID)
	if err == nil {
		return nil
	}

	var exceeded *rate.ExceededError
	if errors.As(err, &exceeded) {
		limited := &RateLimitError{
			Dimension:         string(exceeded.Dimension),
			RetryAfterSeconds: exceeded.RetryAfterSeconds(),
		}
		if exceeded.Dimension == rate.DimensionIP {
			e.metricInc(MetricRateLimitedIP)
		} else {
			e.metricInc(MetricRateLimitedInstall)
		}
		fingerprint := installFingerprint(installID)
		e.logger.InfoContext(ctx, "session issuance rate limited",
			"dimension", limited.Dimension,
			"retry_after", limited.RetryAfterSeconds,
			"install", fingerprint,
		)
		e.emitAudit(ctx, AuditEventSessionRateLimited, fingerprint, clientIP, false, auditErrRateLimited, map[string]string{
			"dimension":   limited.Dimension,
			"retry_after": strconv.Itoa(limited.RetryAfterSeconds),
		})
		return limited
	}

	e.metricInc(MetricRateLimiterUnavailable)
	e.logger.ErrorContext(ctx, "rate limiter backend failure", "error", err)
	return fmt.Errorf("%w: %w", ErrRateLimiterUnavailable, err)
}

// IssueSession runs the issuance flow for installID: rate limit check with the
// client IP carried by ctx (see [WithClientIP]), claims, then a signed token.
func (e *Engine) IssueSession(ctx context.Context, installID string) (string, SessionClaims, error) {
	if e == nil {
		return "", SessionClaims{}, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	clientIP := clientIPFromContext(ctx)
	if err := e.Check(ctx, clientIP, installID); err != nil {
		return "", SessionClaims{}, err
	}

	claims, err := e.Issue(installID)
	if err != nil {
		return "", SessionClaims{}, err
	}
	tok, err := e.Encode(claims)
	if err != nil {
		return "", SessionClaims{}, err
	}

	e.metricInc(MetricSessionIssued)
	e.emitAudit(ctx, AuditEventSessionIssued, installFingerprint(installID), clientIP, true, "", map[string]string{
		"kid":        e.manager.ActiveKeyID(),
		"expires_at": claims.ExpiresAt.Format(time.RFC3339),
	})
	return tok, claims, nil
}
