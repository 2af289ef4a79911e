// Package store provides a SQLite-backed catalog for compiled function
// libraries and recorded execution statistics.
//
// The catalog holds:
//   - Libraries: one row per base URI with the canonical JSON body and its
//     content hash
//   - Functions: one row per declared function URI, for lookups without
//     decoding library bodies
//   - Statistics: measurements from a stats.Manager, grouped by run ID
//
// # Critical Patterns
//
// Content-addressed libraries:
//   - Writing a library whose hash is unchanged is a no-op
//   - A function URI belongs to at most one library
//
// Deterministic query results:
//   - Listings are ordered by seq (a logical clock) and then by key with
//     COLLATE BINARY, never by timestamps
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
