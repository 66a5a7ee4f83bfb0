package utils

import (
	"context"
	"time"

	"asset-tracker/internal/config"
	"asset-tracker/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedis：按配置创建客户端并 PING；未启用时返回 (nil, nil)
func OpenRedis(ctx context.Context, c config.RedisConfig) (*redis.Client, error) {
	if !c.Enable {
		return nil, nil
	}
	rc := redis.NewClient(&redis.Options{Addr: c.Addr(), Password: c.Pass, DB: c.DB})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		rc.Close()
		return nil, err
	}
	logger.L().Debug("redis_open_ok", "addr", c.Addr(), "db", c.DB)
	return rc, nil
}
