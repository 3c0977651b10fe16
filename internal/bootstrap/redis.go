package bootstrap

import (
	"context"
	"time"

	"github.com/bamul/packline-analytics/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OpenRedis returns nil when no address is configured. An unreachable
// server is only logged since the cache falls back to direct queries.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	if cfg.Addr == "" {
		logger.Info("query cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, queries will bypass the cache", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("query cache enabled", zap.String("addr", cfg.Addr), zap.Duration("ttl", cfg.CacheTTL))
	}
	return client
}
