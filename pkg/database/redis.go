package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ekaya-inc/ekaya-reliability/pkg/config"
	"github.com/ekaya-inc/ekaya-reliability/pkg/retry"
)

// NewRedisClient connects to the Redis instance that holds the shared rate
// limit counters. It returns nil, nil when no host is configured.
//
// Reads and writes are bounded by cfg.OpTimeout. The client does not retry
// individual commands: a counter that cannot be read denies the request.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	opts := &redis.Options{
		Addr:       cfg.Addr(),
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: -1,
	}
	if cfg.OpTimeout > 0 {
		opts.ReadTimeout = cfg.OpTimeout
		opts.WriteTimeout = cfg.OpTimeout
	}
	client := redis.NewClient(opts)

	// Only the startup ping retries, so a Redis that is still booting next to
	// the service does not abort it.
	if err := retry.Do(ctx, nil, func() error {
		return client.Ping(ctx).Err()
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}

	return client, nil
}
