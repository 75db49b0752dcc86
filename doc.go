// Package goSession issues and verifies anonymous, HMAC-signed session tokens
// bound to an installation id, with key rotation, a secret strength policy,
// and a dual-dimension fixed-window issuance rate limit.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface: [Engine], [Builder], [Config], and value
// types. The wire format lives in package token, key material in keyring, the
// secret rules in secretpolicy, and the limiter backends under internal/rate.
//
// # What this package must NOT do
//
//   - Log or return raw secrets, signatures, tokens, or install ids.
//   - Retry a failed limiter call or admit a request when the limiter fails.
//   - Perform I/O outside Engine methods, except the optional config file read
//     in LoadConfig.
//
// # Performance contract
//
// Decode is the hot path. It is pure CPU work: one JSON parse and one
// HMAC-SHA-256, with no network round-trips.
package goSession
