// Package httpapi serves the goSession HTTP surface: health, anonymous session
// issuance, and current-session introspection under /v1.
//
// Every error response uses the envelope
//
//	{"error":{"code":"...","message":"...","request_id":"..."}}
//
// and every response echoes X-Request-ID.
//
// # What this package must NOT do
//
//   - Sign or verify tokens itself. All session decisions go through the Engine.
//   - Log tokens or raw install ids.
package httpapi
