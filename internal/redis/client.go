package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hrms-hub/platform-service/internal/config"
)

// Key prefixes
const (
	TenantCachePrefix = "tenant:subdomain:"
	DeviceRatePrefix  = "device:ratelimit:"
)

// Client wraps the Redis client with application-specific methods
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection to Redis
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// CachedTenant is the resolver cache entry for a subdomain
type CachedTenant struct {
	TenantID   string `json:"tenant_id"`
	SchemaName string `json:"schema_name"`
	Status     string `json:"status"`
}

// GetCachedTenant returns the cached resolution for a subdomain, or nil
// on a cache miss
func (c *Client) GetCachedTenant(ctx context.Context, subdomain string) (*CachedTenant, error) {
	data, err := c.rdb.Get(ctx, TenantCachePrefix+subdomain).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached tenant: %w", err)
	}

	var cached CachedTenant
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached tenant: %w", err)
	}
	return &cached, nil
}

// SetCachedTenant caches the resolution for a subdomain
func (c *Client) SetCachedTenant(ctx context.Context, subdomain string, tenant *CachedTenant, ttl time.Duration) error {
	data, err := json.Marshal(tenant)
	if err != nil {
		return fmt.Errorf("failed to marshal cached tenant: %w", err)
	}
	return c.rdb.Set(ctx, TenantCachePrefix+subdomain, data, ttl).Err()
}

// InvalidateTenant drops the cached resolution for a subdomain
func (c *Client) InvalidateTenant(ctx context.Context, subdomain string) error {
	return c.rdb.Del(ctx, TenantCachePrefix+subdomain).Err()
}

// IncrementRateCounter bumps a fixed-window rate counter and returns the
// new count. The window key expires after the window duration, resetting
// the counter.
func (c *Client) IncrementRateCounter(ctx context.Context, key string, window time.Duration) (int64, error) {
	windowKey := fmt.Sprintf("%s%s:%d", DeviceRatePrefix, key, time.Now().Unix()/int64(window.Seconds()))

	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	return incr.Val(), nil
}
