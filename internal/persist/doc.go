// Package persist saves and restores cart snapshots.
//
// An Adapter encodes a cart.State into a versioned JSON envelope and writes
// it to a key-value Backend under a single key:
//
//	cart:v1 -> {"schema":1,"version":7,"items":[...]}
//
// Three backends are provided: Memory (tests, ephemeral sessions), SQLite
// (a local file, the default for cartctl) and Redis (shared deployments).
//
// Writes are synchronous and every snapshot is attempted. A circuit breaker
// tracks backend health and logs when it opens or closes; while it is open,
// saves bypass it and write directly, so the next mutation after a recovery
// persists the latest state. The cart store treats every Save error as
// non-fatal.
//
// Load never fails. A missing key, an undecodable value, an unknown schema
// number or a snapshot that violates cart invariants all yield an empty
// state, and the reason is logged.
package persist
