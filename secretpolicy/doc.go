// Package secretpolicy decides, once at configuration time, whether a session
// signing secret is acceptable for the deployment environment.
//
// Environments are production-like unless they appear on a short allow-list of
// development and test names, so an unrecognized or misspelled environment gets
// the strict rules.
//
// # What this package must NOT do
//
//   - Log, persist, or return generated secrets anywhere except to the caller.
//   - Run per request.
package secretpolicy
