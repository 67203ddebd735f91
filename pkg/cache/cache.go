// Package cache provides caching backends for registry metadata.
//
// The [Cache] interface abstracts over storage backends so callers can
// swap implementations without code changes:
//   - file: Persistent cache for CLI usage (survives restarts)
//   - memory: In-process cache for tests and short-lived commands
//   - redis: Shared cache for multi-instance server deployments
//   - null: No-op cache for disabling caching entirely
//
// All entries carry a time-to-live (TTL). Expired entries are treated as
// misses and removed lazily on the next read.
//
// # Usage
//
//	c, err := cache.NewFileCache(dir)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	if err := c.Set(ctx, "npm:react", data, time.Hour); err != nil {
//	    return err
//	}
//	data, hit, err := c.Get(ctx, "npm:react")
package cache

import (
	"context"
	"time"
)

// Cache is the interface for cache backends.
type Cache interface {
	// Get retrieves a value by key.
	// Returns (data, true, nil) on a hit, (nil, false, nil) on a miss
	// or expired entry, and (nil, false, err) on storage failures.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key with the given TTL.
	// A TTL of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources (connections, file handles).
	Close() error
}
