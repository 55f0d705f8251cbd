package store

import (
	"context"
)

// KV is the persisted key/value store behind the client session. Concrete
// drivers (memory, sqlite, redis) implement this. Values are plain strings;
// Get reports ok=false for a missing key rather than an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}
