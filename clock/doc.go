// Package clock abstracts the current time so token issuance, token
// verification, and rate-limit windows can be driven deterministically in
// tests.
//
// Production code injects [Real]; tests inject [NewFake] and move time with
// [Fake.Advance] or [Fake.Set].
package clock
