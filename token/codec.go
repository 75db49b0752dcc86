package token

import (
	"bytes"
	_ "crypto/sha256" // HS256 needs SHA-256 linked in.
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/keyring"
	"github.com/golang-jwt/jwt/v5"
)

// Version is the current payload format version.
const Version = 2

// Payload is the signed content of a session token. Field order is the wire order.
type Payload struct {
	Version   int    `json:"v"`
	KeyID     string `json:"kid"`
	IssuedAt  int64  `json:"iat"`
	NotBefore int64  `json:"nbf"`
	Issuer    string `json:"iss"`
	Audience  string `json:"aud"`
	ExpiresAt int64  `json:"exp"`
	InstallID string `json:"install_id"`
}

var requiredFields = [...]string{"v", "kid", "iat", "nbf", "iss", "aud", "exp", "install_id"}

// Strict decoding rejects non-zero trailing bits, so every distinct segment
// string maps to distinct bytes.
var segmentParser = jwt.NewParser(jwt.WithStrictDecoding())

// Codec encodes and decodes the token wire format against a key ring.
//
// Codec is stateless beyond its immutable ring and is safe for concurrent use.
type Codec struct {
	ring *keyring.Ring
}

// NewCodec returns a Codec that signs with ring's active key and verifies with
// any key in ring.
func NewCodec(ring *keyring.Ring) (*Codec, error) {
	if ring == nil {
		return nil, errors.New("token codec requires a key ring")
	}
	return &Codec{ring: ring}, nil
}

// Ring returns the codec's key ring.
func (c *Codec) Ring() *keyring.Ring {
	return c.ring
}

// Encode stamps p with the active key id, serializes it, and signs it.
func (c *Codec) Encode(p Payload) (string, error) {
	p.KeyID = c.ring.ActiveKeyID()

	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal token payload: %w", err)
	}
	payloadSegment := base64.RawURLEncoding.EncodeToString(raw)

	sig, err := jwt.SigningMethodHS256.Sign(payloadSegment, c.ring.ActiveSecret())
	if err != nil {
		return "", fmt.Errorf("sign token payload: %w", err)
	}

	return payloadSegment + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// Decode splits, parses, and signature-verifies tokenStr. It does not apply
// version, issuer, audience, or timing rules; see [Manager.Decode].
//
// Every failure wraps [ErrInvalid].
func (c *Codec) Decode(tokenStr string) (Payload, error) {
	payloadSegment, signatureSegment, err := splitToken(tokenStr)
	if err != nil {
		return Payload{}, err
	}

	raw, err := segmentParser.DecodeSegment(payloadSegment)
	if err != nil {
		return Payload{}, invalid("malformed payload encoding")
	}

	p, err := parsePayload(raw)
	if err != nil {
		return Payload{}, err
	}

	secret, ok := c.ring.Lookup(p.KeyID)
	if !ok {
		return Payload{}, invalid("unknown key id")
	}

	sig, err := segmentParser.DecodeSegment(signatureSegment)
	if err != nil {
		return Payload{}, invalid("malformed signature encoding")
	}

	if err := jwt.SigningMethodHS256.Verify(payloadSegment, sig, secret); err != nil {
		return Payload{}, invalid("signature mismatch")
	}

	return p, nil
}

func splitToken(tokenStr string) (string, string, error) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", invalid("malformed token")
	}
	return parts[0], parts[1], nil
}

func parsePayload(raw []byte) (Payload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Payload{}, invalid("payload is not an object")
	}

	for key, value := range fields {
		value = bytes.TrimSpace(value)
		if len(value) > 0 && (value[0] == '{' || value[0] == '[') {
			return Payload{}, invalid(fmt.Sprintf("claim %q is not a scalar", key))
		}
	}
	for _, key := range requiredFields {
		value, ok := fields[key]
		if !ok || isNull(value) {
			return Payload{}, invalid("missing claims")
		}
	}

	var (
		p   Payload
		err error
	)
	if p.Version, err = intClaim[int](fields, "v"); err != nil {
		return Payload{}, err
	}
	if p.KeyID, err = stringClaim(fields, "kid"); err != nil {
		return Payload{}, err
	}
	if p.IssuedAt, err = intClaim[int64](fields, "iat"); err != nil {
		return Payload{}, err
	}
	if p.NotBefore, err = intClaim[int64](fields, "nbf"); err != nil {
		return Payload{}, err
	}
	if p.Issuer, err = stringClaim(fields, "iss"); err != nil {
		return Payload{}, err
	}
	if p.Audience, err = stringClaim(fields, "aud"); err != nil {
		return Payload{}, err
	}
	if p.ExpiresAt, err = intClaim[int64](fields, "exp"); err != nil {
		return Payload{}, err
	}
	if p.InstallID, err = stringClaim(fields, "install_id"); err != nil {
		return Payload{}, err
	}
	return p, nil
}

func intClaim[T int | int64](fields map[string]json.RawMessage, key string) (T, error) {
	var v T
	if err := json.Unmarshal(fields[key], &v); err != nil {
		return 0, invalid(fmt.Sprintf("claim %q is not an integer", key))
	}
	return v, nil
}

func stringClaim(fields map[string]json.RawMessage, key string) (string, error) {
	var v string
	if err := json.Unmarshal(fields[key], &v); err != nil {
		return "", invalid(fmt.Sprintf("claim %q is not a string", key))
	}
	if v == "" {
		return "", invalid(fmt.Sprintf("claim %q is empty", key))
	}
	return v, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalid, reason)
}
