// Package cache provides a small key-value cache abstraction used across the
// gateway for configuration snapshots, channel health state, round-robin
// counters, and rate-limit windows.
//
// Two interchangeable backends are provided:
//
//   - Memory: an in-process map with wall-clock expiry, suitable for
//     single-instance deployments and tests.
//   - Remote: a client for an HTTP key-value service, suitable for
//     multi-instance deployments that need a shared view.
//
// The backend is selected by configuration, never by the calling code; all
// callers program against the Cache interface.
//
// Increment is atomic on the memory backend but is a read-modify-write on the
// remote backend. Callers that use Increment for round-robin counters or
// rate-limit windows must tolerate occasional lost updates under concurrency;
// the gateway accepts the resulting fairness drift.
package cache
