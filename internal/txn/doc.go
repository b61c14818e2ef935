// Package txn implements optimistic read-modify-write transactions against a
// single Redis key.
//
// # Attempt Cycle
//
// Run repeats one attempt until it commits or the deadline passes:
//
//  1. WATCH the key
//  2. open a MULTI batch
//  3. run the caller's Work, which may read through the watched connection
//     and queues its writes on the batch
//  4. EXEC
//
// A nil EXEC reply (redis.TxFailedErr) means another client touched the key
// after the WATCH; every queued effect is discarded by the server and the
// attempt restarts. Any other error, including one returned by Work, ends the
// loop and is returned unchanged.
//
// # Deadline
//
// The loop is bounded by a wall-clock deadline measured on a monotonic clock.
// When it passes without a commit Run returns *WatchTimeoutError, which
// matches ErrWatchTimeout. It signals unresolved contention, not a transport
// fault, and is never converted into a default result.
//
// # Commit Hook
//
// The onCommit callback runs exactly once, after EXEC is confirmed and before
// the Work's Result is resolved. Collection adapters use it to register the
// modification.
package txn
