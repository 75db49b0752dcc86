package keyring

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrEmptyKeyID is returned when a configured key id is blank after trimming.
	ErrEmptyKeyID = errors.New("signing key id must not be empty")
	// ErrEmptySecret is returned when a configured secret is blank after trimming.
	ErrEmptySecret = errors.New("signing key secret must not be empty")
	// ErrActiveKeyMissing is returned when signing keys are configured but the
	// active key id is not one of them.
	ErrActiveKeyMissing = errors.New("active key id is not present in signing keys")
	// ErrNoKeyMaterial is returned when no signing keys are configured and the
	// fallback secret is blank.
	ErrNoKeyMaterial = errors.New("missing key material for active key id")
	// ErrDuplicateKeyID is returned when two configured key ids trim to the
	// same kid.
	ErrDuplicateKeyID = errors.New("duplicate signing key id")
)

// Ring is an immutable set of kid → secret pairs with one active kid.
//
// A Ring is safe for concurrent use.
type Ring struct {
	active string
	keys   map[string][]byte
}

// New builds a Ring.
//
// Every kid and secret in keys is trimmed; blank entries and kids that
// collide after trimming are rejected. When keys
// is empty the ring holds the single entry {activeKID: fallbackSecret}. When keys
// is non-empty it must contain activeKID and fallbackSecret is ignored.
func New(keys map[string]string, activeKID, fallbackSecret string) (*Ring, error) {
	activeKID = strings.TrimSpace(activeKID)
	if activeKID == "" {
		return nil, fmt.Errorf("active %w", ErrEmptyKeyID)
	}

	normalized := make(map[string][]byte, len(keys)+1)
	for kid, secret := range keys {
		kid = strings.TrimSpace(kid)
		secret = strings.TrimSpace(secret)
		if kid == "" {
			return nil, ErrEmptyKeyID
		}
		if secret == "" {
			return nil, fmt.Errorf("%w: kid %q", ErrEmptySecret, kid)
		}
		if _, dup := normalized[kid]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKeyID, kid)
		}
		normalized[kid] = []byte(secret)
	}

	if len(normalized) == 0 {
		fallback := strings.TrimSpace(fallbackSecret)
		if fallback == "" {
			return nil, fmt.Errorf("%w: kid %q", ErrNoKeyMaterial, activeKID)
		}
		normalized[activeKID] = []byte(fallback)
	}

	if _, ok := normalized[activeKID]; !ok {
		return nil, fmt.Errorf("%w: kid %q", ErrActiveKeyMissing, activeKID)
	}

	return &Ring{active: activeKID, keys: normalized}, nil
}

// ActiveKeyID returns the kid used for new signatures.
func (r *Ring) ActiveKeyID() string {
	return r.active
}

// ActiveSecret returns a copy of the active signing secret.
func (r *Ring) ActiveSecret() []byte {
	return cloneBytes(r.keys[r.active])
}

// Lookup returns a copy of the secret for kid.
func (r *Ring) Lookup(kid string) ([]byte, bool) {
	secret, ok := r.keys[kid]
	if !ok {
		return nil, false
	}
	return cloneBytes(secret), true
}

// Has reports whether kid is in the ring.
func (r *Ring) Has(kid string) bool {
	_, ok := r.keys[kid]
	return ok
}

// KeyIDs returns every kid in the ring in sorted order.
func (r *Ring) KeyIDs() []string {
	out := make([]string, 0, len(r.keys))
	for kid := range r.keys {
		out = append(out, kid)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of keys in the ring.
func (r *Ring) Len() int {
	return len(r.keys)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
