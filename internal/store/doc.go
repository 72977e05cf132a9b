// Package store provides a SQLite-backed consistency-cache backend for
// batch jobs that need original-to-synthetic mappings to survive across
// process invocations.
//
// Rows hold (category, original_hash, synthetic_key, payload). The
// original value itself is never written: original_hash is a SHA-256
// computed by the cache layer, so the database leaks nothing even if
// shared.
//
// Uniqueness invariants are enforced by the schema:
//   - PRIMARY KEY (category, original_hash): one substitution per original
//   - UNIQUE (category, synthetic_key): no two originals share a synthetic
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
