package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/clock"
	"github.com/MrEthical07/goSession/keyring"
)

var testStart = time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)

const (
	testIssuer   = "offload-backend-test"
	testAudience = "offload-ios-test"
	testKID      = "test-kid"
	testSecret   = "test-secret"
)

func newTestRing(t *testing.T, keys map[string]string, active, fallback string) *keyring.Ring {
	t.Helper()
	r, err := keyring.New(keys, active, fallback)
	if err != nil {
		t.Fatalf("keyring.New: %v", err)
	}
	return r
}

func newTestManager(t *testing.T, c clock.Clock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Issuer:   testIssuer,
		Audience: testAudience,
		Ring:     newTestRing(t, nil, testKID, testSecret),
		Clock:    c,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func validPayloadMap(now time.Time) map[string]any {
	return map[string]any{
		"v":          2,
		"kid":        testKID,
		"iat":        now.Unix(),
		"nbf":        now.Unix(),
		"iss":        testIssuer,
		"aud":        testAudience,
		"exp":        now.Add(5 * time.Minute).Unix(),
		"install_id": "install-12345",
	}
}

// signRaw builds a token from an arbitrary payload without going through Codec.
func signRaw(t *testing.T, payload any, secret string) string {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	segment := base64.RawURLEncoding.EncodeToString(raw)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(segment))
	return segment + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
