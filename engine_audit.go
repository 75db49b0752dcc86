package goSession

import (
	"context"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// AuditErrorCode classifies a failed audit event.
type AuditErrorCode string

const (
	auditErrInvalidToken AuditErrorCode = "invalid_token"
	auditErrExpiredToken AuditErrorCode = "expired_token"
	auditErrRateLimited  AuditErrorCode = "rate_limited"
)

const (
	unknownClientIP    = "unknown"
	fingerprintBytes   = 8
	fingerprintContext = "gosession/install-id/v1\x00"
)

func rejectionReason(err error) AuditErrorCode {
	if errors.Is(err, ErrExpiredToken) {
		return auditErrExpiredToken
	}
	return auditErrInvalidToken
}

// installFingerprint returns a short stable digest of installID that lets logs
// correlate requests without recording the id.
func installFingerprint(installID string) string {
	if installID == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(fingerprintContext + installID))
	return hex.EncodeToString(sum[:fingerprintBytes])
}

func (e *Engine) emitAudit(ctx context.Context, eventType, fingerprint, ip string, success bool, code AuditErrorCode, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	e.audit.Emit(ctx, AuditEvent{
		Timestamp:          e.clock.Now().UTC(),
		EventType:          eventType,
		InstallFingerprint: fingerprint,
		IP:                 ip,
		Success:            success,
		Error:              string(code),
		Metadata:           metadata,
	})
}
