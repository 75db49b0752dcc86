package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/clock"
	"github.com/MrEthical07/goSession/keyring"
)

// SessionClaims is the validated content of a session token.
type SessionClaims struct {
	InstallID string
	ExpiresAt time.Time
}

// Config configures a [Manager].
type Config struct {
	Issuer   string
	Audience string
	Ring     *keyring.Ring
	Clock    clock.Clock
}

// Manager issues session claims and converts them to and from signed tokens.
//
// Manager holds no mutable state and is safe for concurrent use.
type Manager struct {
	issuer   string
	audience string
	codec    *Codec
	clock    clock.Clock
}

// NewManager validates cfg and returns a Manager. A nil Clock defaults to
// [clock.Real].
func NewManager(cfg Config) (*Manager, error) {
	issuer := strings.TrimSpace(cfg.Issuer)
	audience := strings.TrimSpace(cfg.Audience)
	if issuer == "" || audience == "" {
		return nil, errors.New("token issuer and audience must be non-empty")
	}
	codec, err := NewCodec(cfg.Ring)
	if err != nil {
		return nil, err
	}
	c := cfg.Clock
	if c == nil {
		c = clock.Real()
	}

	return &Manager{
		issuer:   issuer,
		audience: audience,
		codec:    codec,
		clock:    c,
	}, nil
}

// Issue returns claims for installID expiring ttl from now.
func (m *Manager) Issue(installID string, ttl time.Duration) (SessionClaims, error) {
	return m.IssueAt(installID, ttl, m.clock.Now())
}

// IssueAt returns claims for installID expiring ttl after now. ExpiresAt is
// truncated to whole seconds, the precision the wire format carries.
func (m *Manager) IssueAt(installID string, ttl time.Duration, now time.Time) (SessionClaims, error) {
	if installID == "" {
		return SessionClaims{}, errors.New("install id must not be empty")
	}
	if ttl <= 0 {
		return SessionClaims{}, fmt.Errorf("session ttl must be positive, got %s", ttl)
	}
	return SessionClaims{
		InstallID: installID,
		ExpiresAt: time.Unix(now.Add(ttl).Unix(), 0).UTC(),
	}, nil
}

// Encode signs claims with the active key. iat and nbf are the current time.
func (m *Manager) Encode(claims SessionClaims) (string, error) {
	if claims.InstallID == "" {
		return "", errors.New("install id must not be empty")
	}
	now := m.clock.Now().Unix()
	return m.codec.Encode(Payload{
		Version:   Version,
		IssuedAt:  now,
		NotBefore: now,
		Issuer:    m.issuer,
		Audience:  m.audience,
		ExpiresAt: claims.ExpiresAt.Unix(),
		InstallID: claims.InstallID,
	})
}

// Decode verifies tokenStr at the current time.
func (m *Manager) Decode(tokenStr string) (SessionClaims, error) {
	return m.DecodeAt(tokenStr, m.clock.Now())
}

// DecodeAt verifies tokenStr as of now.
//
// It returns an error wrapping [ErrExpired] when the token is valid but
// now ≥ exp, and an error wrapping [ErrInvalid] for every other rejection.
func (m *Manager) DecodeAt(tokenStr string, now time.Time) (SessionClaims, error) {
	p, err := m.codec.Decode(tokenStr)
	if err != nil {
		return SessionClaims{}, err
	}

	switch {
	case p.Version != Version:
		return SessionClaims{}, invalid("unsupported token version")
	case p.Issuer != m.issuer:
		return SessionClaims{}, invalid("issuer mismatch")
	case p.Audience != m.audience:
		return SessionClaims{}, invalid("audience mismatch")
	case p.NotBefore < p.IssuedAt:
		return SessionClaims{}, invalid("invalid timing claims")
	}

	unixNow := now.Unix()
	if unixNow < p.NotBefore {
		return SessionClaims{}, invalid("token not active yet")
	}
	if unixNow >= p.ExpiresAt {
		return SessionClaims{}, ErrExpired
	}

	return SessionClaims{
		InstallID: p.InstallID,
		ExpiresAt: time.Unix(p.ExpiresAt, 0).UTC(),
	}, nil
}

// ActiveKeyID returns the key id new tokens are signed with.
func (m *Manager) ActiveKeyID() string {
	return m.codec.Ring().ActiveKeyID()
}
