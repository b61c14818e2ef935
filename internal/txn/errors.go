package txn

import (
	"errors"
	"fmt"
	"time"
)

// ErrWatchTimeout matches every *WatchTimeoutError.
var ErrWatchTimeout = errors.New("watch timeout")

// WatchTimeoutError reports a transaction that could not commit before its
// deadline because the watched key kept changing.
type WatchTimeoutError struct {
	// Key is the watched key.
	Key string

	// Attempts is the number of watch/multi/exec cycles that were rejected.
	Attempts int

	// Elapsed is the time spent retrying.
	Elapsed time.Duration
}

// Error implements the error interface.
func (e *WatchTimeoutError) Error() string {
	return fmt.Sprintf("watch timeout: key %q still contended after %d attempts (%s)",
		e.Key, e.Attempts, e.Elapsed)
}

// Is makes errors.Is(err, ErrWatchTimeout) true.
func (e *WatchTimeoutError) Is(target error) bool {
	return target == ErrWatchTimeout
}

// IsWatchTimeout returns true if err is or wraps a *WatchTimeoutError.
func IsWatchTimeout(err error) bool {
	var wt *WatchTimeoutError
	return errors.As(err, &wt)
}
