package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned by the strict methods when no client is configured.
var ErrUnavailable = errors.New("redis client not configured")

// Client wraps redis.Client. Get, Set and Delete fail safe by swallowing
// connectivity errors; the remaining methods report them, for callers whose
// data lives only in Redis.
type Client struct {
	client *redis.Client
}

// New creates a new Redis client.
func New(addr, password string, db int) *Client {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return &Client{client: redis.NewClient(opts)}
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrUnavailable
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Get returns value or nil if missing or redis unavailable.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	res, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// fail safe: behave like cache miss
		return nil, nil
	}
	return res, nil
}

// Set stores value with TTL, ignoring redis errors.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	_ = c.client.Set(ctx, key, value, ttl).Err()
	return nil
}

// Delete removes a key, ignoring redis errors.
func (c *Client) Delete(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	_ = c.client.Del(ctx, key).Err()
	return nil
}

// Fetch returns the value at key, nil when the key does not exist.
func (c *Client) Fetch(ctx context.Context, key string) ([]byte, error) {
	if c == nil || c.client == nil {
		return nil, ErrUnavailable
	}
	res, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return res, nil
}

// SetNX stores value only if key is absent. It reports whether the value was stored.
func (c *Client) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if c == nil || c.client == nil {
		return false, ErrUnavailable
	}
	ok, err := c.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

// Remove deletes keys and returns how many existed.
func (c *Client) Remove(ctx context.Context, keys ...string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, ErrUnavailable
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis del: %w", err)
	}
	return n, nil
}

// AddToSet adds member to the set at key and extends the set's TTL to at least ttl.
func (c *Client) AddToSet(ctx context.Context, key, member string, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return ErrUnavailable
	}
	pipe := c.client.TxPipeline()
	pipe.SAdd(ctx, key, member)
	pipe.ExpireGT(ctx, key, ttl)
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis sadd %s: %w", key, err)
	}
	return nil
}

// SetMembers returns the members of the set at key.
func (c *Client) SetMembers(ctx context.Context, key string) ([]string, error) {
	if c == nil || c.client == nil {
		return nil, ErrUnavailable
	}
	members, err := c.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers %s: %w", key, err)
	}
	return members, nil
}

// RemoveFromSet removes member from the set at key.
func (c *Client) RemoveFromSet(ctx context.Context, key, member string) error {
	if c == nil || c.client == nil {
		return ErrUnavailable
	}
	if err := c.client.SRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("redis srem %s: %w", key, err)
	}
	return nil
}
