// Package token mints and verifies compact HMAC-signed session tokens.
//
// # Wire format
//
//	<payload_segment>.<signature_segment>
//
// Both segments are unpadded base64url. The payload is compact JSON with the
// fields v, kid, iat, nbf, iss, aud, exp, install_id in that order. The
// signature is HMAC-SHA-256 over the payload segment, keyed by the ring secret
// that kid names.
//
// [Codec] handles the wire format and signatures; [Manager] issues claims and
// applies version, issuer, audience, and timing rules.
//
// # What this package must NOT do
//
//   - Keep server-side token state (tokens are self-describing).
//   - Compare signatures with anything but a constant-time comparison.
package token
