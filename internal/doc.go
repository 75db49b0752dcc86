// Package internal holds the goSession building blocks that are not part of
// the public API.
//
// # Sub-packages
//
//   - rate: fixed-window issuance limiter with memory and Redis backends
//   - httpapi: the /v1 HTTP surface served by cmd/gosession-server
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
package internal
