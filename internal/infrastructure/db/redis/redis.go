package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTimeout  = 5 * time.Second
	defaultPoolSize = 20
)

// Config captures the settings for the coordination store (limit locks and
// usage dedup).
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

func (c Config) options() *redis.Options {
	pool := c.PoolSize
	if pool <= 0 {
		pool = defaultPoolSize
	}
	return &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     pool,
		DialTimeout:  c.timeout(),
		ReadTimeout:  c.timeout(),
		WriteTimeout: c.timeout(),
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

// Connect opens a client and pings it. Lock acquisition fails closed without
// Redis, so an unreachable server is a startup error.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(cfg.options())

	pingCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
