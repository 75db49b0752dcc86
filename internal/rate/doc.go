// Package rate provides the fixed-window limiter that guards session issuance.
//
// Every check covers two dimensions in order: client IP, then installation id.
// Each dimension has its own limit and they share one window length.
//
// # Window semantics
//
// A window starts on the first hit for a key and lasts Config.Window. A hit in
// an elapsed window replaces it with a fresh one. A hit over the limit is
// rejected without mutating the counter and reports the seconds until the
// window closes (never less than one).
//
// If the IP dimension admits a request and the install dimension rejects it,
// the IP increment stays. Both backends run the two dimensions as one atomic
// step: a single mutex in [MemoryLimiter], a single Lua script in [RedisLimiter].
//
// # Key layout (Redis)
//
//	{<prefix>}:rl:ip:<client ip>
//	{<prefix>}:rl:install:<install id>
//
// The braces form a cluster hash tag so both keys of one check share a slot.
//
// # What this package must NOT do
//
//   - Decide what to do with a rejection (the engine maps it to a public error).
//   - Retry a failed Redis call.
//   - Be imported outside the goSession module.
package rate
