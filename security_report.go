package goSession

import "time"

// SecurityReport summarizes the security-relevant engine settings. It never
// contains secrets.
type SecurityReport struct {
	Environment      string
	BuildVersion     string
	ProductionLike   bool
	Issuer           string
	Audience         string
	ActiveKeyID      string
	KeyIDs           []string
	EphemeralSecret  bool
	SessionTTL       time.Duration
	RateLimit        RateLimitReport
	AuditEnabled     bool
	MetricsEnabled   bool
	LintWarningCodes []string
}

// RateLimitReport describes the issuance limiter.
type RateLimitReport struct {
	Backend    string
	PerIP      int
	PerInstall int
	Window     time.Duration
}

// SecurityReport returns the resolved settings of e for startup logging.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	keyIDs := make([]string, len(e.keyIDs))
	copy(keyIDs, e.keyIDs)

	lint := e.config.Lint()
	codes := make([]string, 0, len(lint))
	for _, w := range lint {
		// The stored config has secrets stripped, so recompute these two from
		// what Build actually resolved.
		if w.Code == "secret_ephemeral" || w.Code == "single_signing_key" {
			continue
		}
		codes = append(codes, w.Code)
	}
	if e.ephemeralSecret {
		codes = append(codes, "secret_ephemeral")
	}
	if len(keyIDs) <= 1 {
		codes = append(codes, "single_signing_key")
	}

	return SecurityReport{
		Environment:     e.config.Environment,
		BuildVersion:    e.config.BuildVersion,
		ProductionLike:  e.config.ProductionLike(),
		Issuer:          e.config.Token.Issuer,
		Audience:        e.config.Token.Audience,
		ActiveKeyID:     e.manager.ActiveKeyID(),
		KeyIDs:          keyIDs,
		EphemeralSecret: e.ephemeralSecret,
		SessionTTL:      e.config.Token.SessionTTL,
		RateLimit: RateLimitReport{
			Backend:    e.config.RateLimit.Backend,
			PerIP:      e.config.RateLimit.PerIP,
			PerInstall: e.config.RateLimit.PerInstall,
			Window:     e.config.RateLimit.Window,
		},
		AuditEnabled:     e.config.Audit.Enabled,
		MetricsEnabled:   e.config.Metrics.Enabled,
		LintWarningCodes: codes,
	}
}
