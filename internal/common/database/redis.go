package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clientatech-agent/internal/common/config"
)

// RedisClient backs the redis cache store.
type RedisClient struct {
	Client *redis.Client
}

// redisOptions keeps socket timeouts short: a slow cache must degrade to a
// miss long before the request budget runs out.
func redisOptions(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	}
}

// NewRedis does not connect; the first command or Ping does.
func NewRedis(cfg config.RedisConfig) *RedisClient {
	return &RedisClient{Client: redis.NewClient(redisOptions(cfg))}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", c.Client.Options().Addr, err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
