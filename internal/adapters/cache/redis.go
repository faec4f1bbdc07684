package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/taskmaster/todolists/internal/infrastructure/config"
)

const revokedKeyPrefix = "todolists:revoked:"

// RedisDenylist keeps revoked token ids in Redis with a TTL matching the
// token's remaining lifetime, so every API instance sees a logout.
type RedisDenylist struct {
	client *redis.Client
	addr   string
}

// NewRedisDenylist connects to Redis and verifies the connection
func NewRedisDenylist(ctx context.Context, cfg config.RedisConfig) (*RedisDenylist, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 3,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.GetAddr(), err)
	}

	return &RedisDenylist{client: client, addr: cfg.GetAddr()}, nil
}

// Revoke marks tokenID revoked until expiresAt
func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := d.client.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revoked token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked and has not yet expired
func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up revoked token: %w", err)
	}
	return n > 0, nil
}

// HealthCheck pings Redis
func (d *RedisDenylist) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return d.client.Ping(ctx).Err()
}

// GetConnectionInfo returns connection information
func (d *RedisDenylist) GetConnectionInfo() map[string]interface{} {
	stats := d.client.PoolStats()
	return map[string]interface{}{
		"backend":     "redis",
		"address":     d.addr,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
	}
}

// Close closes the Redis connection
func (d *RedisDenylist) Close() error {
	return d.client.Close()
}
