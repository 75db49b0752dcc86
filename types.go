package goSession

import "github.com/MrEthical07/goSession/token"

// SessionClaims is the validated content of a session token: the
// installation id and the expiry, truncated to whole seconds in UTC.
type SessionClaims = token.SessionClaims
