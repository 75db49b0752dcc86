package secretpolicy

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// MinSecretLength is the minimum number of characters in a production secret.
	MinSecretLength = 32
	// MinUniqueChars is the minimum number of distinct characters in a production secret.
	MinUniqueChars = 6

	generatedSecretBytes = 48
)

var (
	// ErrSecretRequired is returned when a production-like environment has no secret.
	ErrSecretRequired = errors.New("session secret is required in production-like environments")
	// ErrWeakSecret is returned when a secret fails the strength rules.
	ErrWeakSecret = errors.New("session secret is too weak")
)

var nonProductionEnvironments = map[string]struct{}{
	"":            {},
	"dev":         {},
	"development": {},
	"local":       {},
	"test":        {},
	"testing":     {},
}

var placeholderSecrets = map[string]struct{}{
	"changeme":               {},
	"change-me":              {},
	"change-me-please":       {},
	"dev-secret-change-me":   {},
	"offload-session-secret": {},
	"password":               {},
	"secret":                 {},
	"test-secret":            {},
}

// IsProductionLike reports whether env must be treated as production.
func IsProductionLike(env string) bool {
	_, ok := nonProductionEnvironments[strings.ToLower(strings.TrimSpace(env))]
	return !ok
}

// CheckStrength returns nil when secret satisfies every strength rule, or an
// error wrapping ErrWeakSecret naming the first rule it breaks.
func CheckStrength(secret string) error {
	normalized := strings.TrimSpace(secret)
	if utf8.RuneCountInString(normalized) < MinSecretLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakSecret, MinSecretLength)
	}
	if _, ok := placeholderSecrets[strings.ToLower(normalized)]; ok {
		return fmt.Errorf("%w: known placeholder value", ErrWeakSecret)
	}
	if distinctRunes(normalized) < MinUniqueChars {
		return fmt.Errorf("%w: must contain at least %d distinct characters", ErrWeakSecret, MinUniqueChars)
	}
	return nil
}

// IsStrong reports whether secret passes CheckStrength.
func IsStrong(secret string) bool {
	return CheckStrength(secret) == nil
}

// ResolveSecret returns the secret to sign with for env.
//
// Non-production environments get a freshly generated secret when none is set;
// a set secret is returned trimmed. Production-like environments require a set
// secret that passes CheckStrength.
//
// generated is true when the returned secret was synthesized by this call.
func ResolveSecret(env, secret string) (resolved string, generated bool, err error) {
	normalized := strings.TrimSpace(secret)

	if !IsProductionLike(env) {
		if normalized != "" {
			return normalized, false, nil
		}
		fresh, err := GenerateSecret()
		if err != nil {
			return "", false, err
		}
		return fresh, true, nil
	}

	if normalized == "" {
		return "", false, ErrSecretRequired
	}
	if err := CheckStrength(normalized); err != nil {
		return "", false, err
	}
	return normalized, false, nil
}

// ValidateSigningKeys applies CheckStrength to every secret in keys when env is
// production-like. Non-production environments accept any non-empty key set.
func ValidateSigningKeys(env string, keys map[string]string) error {
	if !IsProductionLike(env) {
		return nil
	}

	kids := make([]string, 0, len(keys))
	for kid := range keys {
		kids = append(kids, kid)
	}
	sort.Strings(kids)

	for _, kid := range kids {
		if err := CheckStrength(keys[kid]); err != nil {
			return fmt.Errorf("signing key %q: %w", strings.TrimSpace(kid), err)
		}
	}
	return nil
}

// GenerateSecret returns a high-entropy random secret suitable for HMAC-SHA-256.
func GenerateSecret() (string, error) {
	var raw [generatedSecretBytes]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

func distinctRunes(s string) int {
	seen := make(map[rune]struct{}, len(s))
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return len(seen)
}
