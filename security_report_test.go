package goSession

import (
	"strings"
	"testing"
	"time"
)

func TestSecurityReport(t *testing.T) {
	cfg := testConfig()
	cfg.BuildVersion = "1.2.3"
	cfg.Token.ActiveKeyID = "k2"
	cfg.Token.SigningKeys = map[string]string{"k1": strongSecret, "k2": strongSecret + "!"}
	engine, _ := buildTestEngine(t, cfg, nil)

	r := engine.SecurityReport()
	if r.ProductionLike || r.Environment != "test" || r.BuildVersion != "1.2.3" {
		t.Fatalf("unexpected environment fields %+v", r)
	}
	if r.ActiveKeyID != "k2" || strings.Join(r.KeyIDs, ",") != "k1,k2" {
		t.Fatalf("unexpected key fields %+v", r)
	}
	if r.EphemeralSecret {
		t.Fatal("configured keys are not ephemeral")
	}
	if r.SessionTTL != 5*time.Minute {
		t.Fatalf("unexpected ttl %s", r.SessionTTL)
	}
	if r.RateLimit.Backend != RateLimitBackendMemory || r.RateLimit.PerIP != 30 || r.RateLimit.PerInstall != 10 || r.RateLimit.Window != time.Minute {
		t.Fatalf("unexpected rate limit report %+v", r.RateLimit)
	}
	if containsCode(r.LintWarningCodes, "single_signing_key") || containsCode(r.LintWarningCodes, "secret_ephemeral") {
		t.Fatalf("unexpected lint codes %v", r.LintWarningCodes)
	}

	r.KeyIDs[0] = "mutated"
	if engine.SecurityReport().KeyIDs[0] != "k1" {
		t.Fatal("report must not alias engine state")
	}
}

func TestSecurityReportSingleFallbackKey(t *testing.T) {
	engine, _ := buildTestEngine(t, testConfig(), nil)
	r := engine.SecurityReport()

	if len(r.KeyIDs) != 1 || r.KeyIDs[0] != "test-kid" {
		t.Fatalf("unexpected key ids %v", r.KeyIDs)
	}
	if !containsCode(r.LintWarningCodes, "single_signing_key") {
		t.Fatal("expected single_signing_key")
	}
	if containsCode(r.LintWarningCodes, "secret_ephemeral") {
		t.Fatal("configured secret is not ephemeral")
	}

	var nilEngine *Engine
	if nilEngine.SecurityReport().ActiveKeyID != "" {
		t.Fatal("nil engine report must be empty")
	}
}
