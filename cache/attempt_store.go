package cache

import (
	"context"
	"time"
)

// AttemptStore counts failed attempts per key with a sliding expiry. In a
// multi-instance deployment this must be backed by a shared store; an
// in-process map is only a single-instance convenience.
type AttemptStore interface {
	// Increment adds one to the counter for key, creating it with the given
	// TTL if absent, and returns the new count.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Get returns the current count for key, zero if absent or expired.
	Get(ctx context.Context, key string) (int64, error)

	// Clear removes the counter for key.
	Clear(ctx context.Context, key string) error
}
