// Package journal provides a SQLite-backed, append-only log of confirmed
// collection mutations.
//
// A Store implements collection.Observer, so attaching it to an adapter with
// collection.WithObserver records every mutation the adapter confirms, in
// the order the adapter confirmed them.
//
// # Ordering
//
//   - seq is assigned by SQLite (INTEGER PRIMARY KEY) and is the only
//     ordering used by reads; recorded_at is informational
//   - mod_count is the adapter's modification count after the mutation, so
//     gaps reveal mutations made while the journal was unavailable
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package journal
