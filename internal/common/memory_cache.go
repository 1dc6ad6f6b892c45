package common

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryCache is the in-process cache used when no Redis host is configured.
type MemoryCache struct {
	cache *cache.Cache
}

var _ Cache = (*MemoryCache)(nil)

func NewMemoryCache(defaultExpiration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{cache: cache.New(defaultExpiration, cleanupInterval)}
}

func (mc *MemoryCache) Set(key string, value interface{}, duration time.Duration) {
	mc.cache.Set(key, value, duration)
}

func (mc *MemoryCache) Get(key string) (interface{}, bool) {
	return mc.cache.Get(key)
}

func (mc *MemoryCache) Delete(key string) {
	mc.cache.Delete(key)
}

func (mc *MemoryCache) GetOrSet(key string, duration time.Duration, loader func() (any, error)) (interface{}, error) {
	if val, found := mc.Get(key); found {
		return val, nil
	}

	val, err := loader()
	if err != nil {
		return nil, err
	}

	mc.Set(key, val, duration)
	return val, nil
}

func (mc *MemoryCache) Close() error {
	return nil
}
