package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nerrad567/skybridge/internal/infrastructure/config"
)

// connectionTimeout bounds the startup ping.
const connectionTimeout = 5 * time.Second

// Client wraps a go-redis client with Skybridge-specific lifecycle handling.
// All methods on the embedded redis.Client are safe for concurrent use.
type Client struct {
	*redis.Client
}

// New creates a connection pool to the key-value store and verifies it with
// a ping before returning.
func New(cfg config.KVConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying kv connection: %w", err)
	}

	return &Client{Client: rdb}, nil
}

// HealthCheck verifies the store is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("kv health check failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	if err := c.Client.Close(); err != nil {
		return fmt.Errorf("closing kv client: %w", err)
	}
	return nil
}
