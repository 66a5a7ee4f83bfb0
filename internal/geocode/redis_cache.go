package geocode

import (
	"context"
	"errors"
	"time"

	"asset-tracker/internal/geo"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "revgeo:"

// RedisCache：跨进程共享的地址缓存，键为 revgeo:<lat3>:<lon3>
type RedisCache struct {
	rc  *redis.Client
	ttl time.Duration
}

func NewRedisCache(rc *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{rc: rc, ttl: ttl}
}

func redisKey(c geo.Coordinate) string { return redisPrefix + c.CacheKey() }

// Get：未命中返回 ("", false, nil)
func (r *RedisCache) Get(ctx context.Context, c geo.Coordinate) (string, bool, error) {
	s, err := r.rc.Get(ctx, redisKey(c)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s, s != "", nil
}

func (r *RedisCache) Set(ctx context.Context, c geo.Coordinate, addr string) error {
	return r.rc.Set(ctx, redisKey(c), addr, r.ttl).Err()
}
