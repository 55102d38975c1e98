package ports

import (
	"context"
	"errors"
	"time"
)

// ErrCacheUnavailable marks a cache fault: the backing store could not be reached,
// timed out, or is short-circuited by a breaker. Callers treat it as a miss on reads
// and as a no-op on writes.
var ErrCacheUnavailable = errors.New("cache unavailable")

// Cache defines a minimal key-value cache contract.
// Implementations should degrade gracefully (returning an error without crashing callers)
// so that application logic can fall back to the primary datastore.
type Cache interface {
	// Get returns the raw bytes for key. ok=false if not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key with TTL (0 or negative means no expiration if supported).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
	// DeleteByPrefix removes every key starting with prefix and reports how many were removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
	// Close releases the underlying connections.
	Close() error
}
