// Package cache provides the shared key-value store used by the captcha
// challenge service, the token revocation store and the permission cache.
//
// The Store interface is deliberately small: string values with per-key TTL.
// It is passed into components by construction rather than consumed as an
// ambient singleton, so multi-instance deployments share one Redis while
// tests run against miniredis.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or has expired.
var ErrNotFound = errors.New("cache: key not found")

// Store is a shared key-value store with per-key TTL.
//
// Implementations must be safe for concurrent use and must provide
// read-your-writes consistency for a single key: a Set followed by a Get of
// the same key from the same caller observes the written value.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes value under key. A ttl <= 0 stores the value without
	// expiration.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Del removes the given keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// MGet fetches many keys in one round trip and returns the values that
	// were present. Missing keys are simply absent from the result.
	MGet(ctx context.Context, keys ...string) (map[string]string, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}
