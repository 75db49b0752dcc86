package token

import "errors"

var (
	// ErrInvalid covers every malformed, unverifiable, or semantically rejected
	// token except an expired one. Wrapped errors carry the sub-cause for logs.
	ErrInvalid = errors.New("invalid session token")
	// ErrExpired is returned for a structurally and cryptographically valid
	// token whose exp has passed.
	ErrExpired = errors.New("session token expired")
)
