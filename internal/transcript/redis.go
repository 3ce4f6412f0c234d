package transcript

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisCapability backs the transcript store with redis, letting transcripts
// survive a client restart. Entries carry a TTL so abandoned scopes age out.
type RedisCapability struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOption configures the adapter.
type RedisOption func(*RedisCapability)

// WithTTL sets the expiration for stored transcripts. Zero means no expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(c *RedisCapability) {
		c.ttl = ttl
	}
}

// NewRedisCapability creates an adapter connecting to addr.
func NewRedisCapability(addr, password string, db int, opts ...RedisOption) *RedisCapability {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisCapabilityFromClient(client, opts...)
}

// NewRedisCapabilityFromClient wraps an existing client; used by tests with
// miniredis.
func NewRedisCapabilityFromClient(client *redis.Client, opts ...RedisOption) *RedisCapability {
	c := &RedisCapability{client: client, ttl: 24 * time.Hour}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCapability) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCapability) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, key, value, c.ttl).Err()
}

func (c *RedisCapability) Remove(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Close closes the underlying client.
func (c *RedisCapability) Close() error { return c.client.Close() }

var _ Capability = (*RedisCapability)(nil)
