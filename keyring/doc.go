// Package keyring holds the HMAC signing secrets used for session tokens,
// addressed by key id, plus the one key id used for new signatures.
//
// # Rotation
//
// A ring may hold any number of keys. To rotate, deploy with the new key added
// while the old key stays active, switch the active key id on the next deploy,
// and drop the old key only after every token it signed has expired. Tokens
// are verified against whichever ring key their embedded kid names.
//
// # What this package must NOT do
//
//   - Mutate a Ring after construction (no locking is needed by readers).
//   - Judge secret strength (that lives in secretpolicy).
package keyring
