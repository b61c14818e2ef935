// Package collection provides index-addressable collections stored in Redis.
//
// RedisList maps the List interface onto one Redis list key. Positional
// removal and replacement run as optimistic WATCH/MULTI/EXEC transactions
// bounded by a deadline (package txn). Interior inserts run the server-side
// rebalance script (package rebalance).
//
// Every confirmed mutation bumps the adapter's modification count, which its
// iterators use to fail fast.
package collection
