package redis

import (
	"context"
	"fmt"

	rds "github.com/redis/go-redis/v9"

	"github.com/YelzhanWeb/foodtruck/internal/config"
)

// NewClient connects and pings so a bad address fails at startup.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*rds.Client, error) {
	client := rds.NewClient(&rds.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
