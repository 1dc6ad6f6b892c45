package common

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"carbridge/pricer/internal/config"
	"carbridge/pricer/internal/logging"
)

// RedisCache implements Cache on a shared Redis instance so multiple pricer
// replicas see the same hot lookup entries.
type RedisCache struct {
	client *redis.Client
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	logging.Info("Connected to Redis", "addr", addr)
	return &RedisCache{client: client}, nil
}

func (rc *RedisCache) Set(key string, value interface{}, duration time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		logging.Warn("Redis cache: failed to marshal value", "key", key, "error", err.Error())
		return
	}
	if err := rc.client.Set(context.Background(), key, data, duration).Err(); err != nil {
		logging.Warn("Redis cache: SET failed", "key", key, "error", err.Error())
	}
}

func (rc *RedisCache) Get(key string) (interface{}, bool) {
	data, err := rc.client.Get(context.Background(), key).Bytes()
	if err != nil {
		return nil, false
	}

	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false
	}
	return value, true
}

func (rc *RedisCache) Delete(key string) {
	if err := rc.client.Del(context.Background(), key).Err(); err != nil {
		logging.Warn("Redis cache: DEL failed", "key", key, "error", err.Error())
	}
}

func (rc *RedisCache) GetOrSet(key string, duration time.Duration, loader func() (any, error)) (interface{}, error) {
	if val, found := rc.Get(key); found {
		return val, nil
	}

	val, err := loader()
	if err != nil {
		return nil, err
	}

	rc.Set(key, val, duration)
	return val, nil
}

func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
