package infra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient configures a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	// Shows up in CLIENT LIST, which helps when the instance is shared.
	opt.ClientName = "webwallet"

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
