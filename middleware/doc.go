// Package middleware adapts goSession.Engine token verification to net/http.
//
// [RequireSession] reads the Authorization header, calls Engine.Decode, and
// injects the verified claims into the request context for
// [ClaimsFromContext]. [ClientIP] derives the address used for issuance rate
// limiting and audit.
//
// # What this package must NOT do
//
//   - Parse or sign tokens directly. Engine owns the codec.
//   - Choose response bodies. Callers supply the error handler.
package middleware
