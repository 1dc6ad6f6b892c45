package common

import "time"

// Cache is the contract shared by the in-memory and Redis implementations.
// The lookup resolver uses it as a hot first tier in front of the persistent
// hp_lookups table.
type Cache interface {
	// Set stores a value under key for the given duration.
	Set(key string, value interface{}, duration time.Duration)

	// Get retrieves a value by key, reporting whether it was present.
	Get(key string) (interface{}, bool)

	// Delete removes a value by key.
	Delete(key string)

	// GetOrSet returns the cached value, or loads and caches it on a miss.
	GetOrSet(key string, duration time.Duration, loader func() (any, error)) (interface{}, error)

	// Close releases any underlying connections.
	Close() error
}
