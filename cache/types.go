package cache

import (
	"context"
	"time"
)

// Cache is a key/value store with per-key TTL. The signer's replay guard
// uses SetNX to claim nonces.
type Cache interface {
	// Get retrieves a value by key, or ErrKeyNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with optional TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores a value only if key is absent and reports whether it did
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists
	Exists(ctx context.Context, key string) (bool, error)

	// Clear removes all keys under the configured prefix
	Clear(ctx context.Context) error

	// Close releases the backend
	Close() error

	// Ping checks if the backend is reachable
	Ping(ctx context.Context) error
}
