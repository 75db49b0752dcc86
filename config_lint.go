package goSession

import (
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks advisory findings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one advisory finding. Lint findings never block Build.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings from [Config.Lint].
type LintResult []LintWarning

// Codes returns the code of every finding in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the findings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// Lint reports configurations that are valid but likely unintended.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if len(c.Token.SigningKeys) == 0 && strings.TrimSpace(c.Token.Secret) == "" && !c.ProductionLike() {
		add("secret_ephemeral", LintWarn,
			"no secret configured: a random secret is generated per process and tokens do not survive restarts")
	}
	if len(c.Token.SigningKeys) <= 1 {
		add("single_signing_key", LintInfo,
			"only one signing key: rotating it invalidates every outstanding token")
	}
	if c.Token.SessionTTL > 12*time.Hour {
		add("session_ttl_long", LintWarn, "session TTL %s exceeds 12h", c.Token.SessionTTL)
	}
	if c.RateLimit.Window > 0 && c.RateLimit.Window < 10*time.Second {
		add("rate_window_short", LintInfo, "rate window %s is shorter than 10s", c.RateLimit.Window)
	}
	if c.RateLimit.PerInstall > c.RateLimit.PerIP {
		add("rate_install_exceeds_ip", LintWarn,
			"per-install limit %d exceeds per-IP limit %d and can never be reached from one IP",
			c.RateLimit.PerInstall, c.RateLimit.PerIP)
	}
	if c.ProductionLike() && c.RateLimit.Backend == RateLimitBackendMemory {
		add("memory_backend_production", LintHigh,
			"in-process rate limiter in a production-like environment does not share windows across instances")
	}

	return ws
}
