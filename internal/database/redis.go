package database

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"kasku/internal/config"
	"kasku/internal/logger"
)

// NewRedisClient connects to Redis when an address is configured. It returns
// nil when Redis is disabled or unreachable, in which case token revocation
// is turned off.
func NewRedisClient(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Get().Info("Redis not configured, token revocation disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Get().Warnw("Redis connection failed, continuing without token revocation", "addr", cfg.RedisAddr, "error", err)
		_ = rdb.Close()
		return nil
	}

	logger.Get().Infow("Redis connection established", "addr", cfg.RedisAddr)
	return rdb
}
