package goSession

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override read by LoadConfig.
const EnvPrefix = "GOSESSION_"

// LoadConfig starts from DefaultConfig, applies the YAML file at path (when
// path is non-empty), then applies GOSESSION_* overrides from lookupEnv. A nil
// lookupEnv reads the process environment.
//
// Unknown YAML fields and malformed override values are configuration errors.
// LoadConfig does not call Validate.
func LoadConfig(path string, lookupEnv func(string) (string, bool)) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, configError(fmt.Errorf("read config file: %w", err))
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, configError(fmt.Errorf("parse config file %s: %w", path, err))
		}
	}

	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if err := applyEnv(&cfg, lookupEnv); err != nil {
		return Config{}, configError(err)
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookupEnv func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookupEnv(EnvPrefix + name)
		if !ok {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{"ENVIRONMENT", &cfg.Environment},
		{"BUILD_VERSION", &cfg.BuildVersion},
		{"SESSION_SECRET", &cfg.Token.Secret},
		{"TOKEN_ISSUER", &cfg.Token.Issuer},
		{"TOKEN_AUDIENCE", &cfg.Token.Audience},
		{"TOKEN_ACTIVE_KID", &cfg.Token.ActiveKeyID},
		{"RATE_LIMIT_BACKEND", &cfg.RateLimit.Backend},
		{"REDIS_PREFIX", &cfg.RateLimit.RedisPrefix},
	}
	for _, s := range strs {
		if v, ok := get(s.name); ok {
			*s.dst = v
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"RATE_LIMIT_PER_IP", &cfg.RateLimit.PerIP},
		{"RATE_LIMIT_PER_INSTALL", &cfg.RateLimit.PerInstall},
	}
	for _, n := range ints {
		v, ok := get(n.name)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %q is not an integer", EnvPrefix, n.name, v)
		}
		*n.dst = parsed
	}

	seconds := []struct {
		name string
		dst  *time.Duration
	}{
		{"SESSION_TTL_SECONDS", &cfg.Token.SessionTTL},
		{"RATE_LIMIT_WINDOW_SECONDS", &cfg.RateLimit.Window},
	}
	for _, s := range seconds {
		v, ok := get(s.name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s%s: %q is not a whole number of seconds", EnvPrefix, s.name, v)
		}
		*s.dst = time.Duration(parsed) * time.Second
	}

	if v, ok := get("TOKEN_SIGNING_KEYS"); ok {
		keys, err := ParseSigningKeys(v)
		if err != nil {
			return fmt.Errorf("%sTOKEN_SIGNING_KEYS: %w", EnvPrefix, err)
		}
		cfg.Token.SigningKeys = keys
	}

	return nil
}

// ParseSigningKeys parses "kid=secret,kid=secret". Whitespace around entries
// is ignored and an empty string yields no keys. Duplicate kids are rejected.
func ParseSigningKeys(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	keys := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		kid, secret, ok := strings.Cut(entry, "=")
		kid = strings.TrimSpace(kid)
		secret = strings.TrimSpace(secret)
		if !ok || kid == "" || secret == "" {
			return nil, fmt.Errorf("entry %q must be kid=secret", redactEntry(entry))
		}
		if _, dup := keys[kid]; dup {
			return nil, fmt.Errorf("duplicate kid %q", kid)
		}
		keys[kid] = secret
	}
	return keys, nil
}

func redactEntry(entry string) string {
	kid, _, found := strings.Cut(entry, "=")
	if !found {
		return "<redacted>"
	}
	return strings.TrimSpace(kid) + "=<redacted>"
}
