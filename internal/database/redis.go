package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects the store for sessions, login links and presence.
// The server may start before Redis accepts connections, so the first ping is
// retried.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.ClientName = "kaucjaflow"

	client := redis.NewClient(opts)
	err = retry(ctx, "redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	slog.Info("redis client created", "addr", opts.Addr, "db", opts.DB)
	return client, nil
}

// RedisCheck adapts a client to a readiness probe.
func RedisCheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
