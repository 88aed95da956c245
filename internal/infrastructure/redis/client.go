package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/print-order-api/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient connects to Redis and verifies the connection with a PING.
func NewClient(ctx context.Context, cfg *config.Config) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}
