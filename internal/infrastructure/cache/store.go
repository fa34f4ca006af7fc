package cache

import (
	"context"
	"time"
)

// Store is a small key/value cache with expiry.
// Keys are namespaced by the caller; values are opaque strings.
type Store interface {
	// Get returns the value and whether the key was present
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX sets the key only if it is absent and reports whether it did
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Take returns and removes the value in one step
	Take(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// Incr increments a counter; the window starts with the first increment
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Close() error
}
