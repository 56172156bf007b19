package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// inFlight marks a claimed key whose request has not finished yet
const inFlight = "in-flight"

// Client stores request-to-buy idempotency keys in Redis. A claim lives for
// claimTTL until Complete replaces it with the result, which lives for ttl.
type Client struct {
	rdb      *redis.Client
	ttl      time.Duration
	claimTTL time.Duration
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int, ttl, claimTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewClientFromRedis(rdb, ttl, claimTTL), nil
}

// NewClientFromRedis wraps an existing go-redis client
func NewClientFromRedis(rdb *redis.Client, ttl, claimTTL time.Duration) *Client {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if claimTTL <= 0 {
		claimTTL = 30 * time.Second
	}
	return &Client{rdb: rdb, ttl: ttl, claimTTL: claimTTL}
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}

// Claim reserves key for a new request. An unfinished claim expires after
// claimTTL. When the key is already taken it returns claimed=false and the
// stored transaction id, which is empty while the first request is still
// running.
func (c *Client) Claim(ctx context.Context, key string) (bool, string, error) {
	ok, err := c.rdb.SetNX(ctx, idempotencyKey(key), inFlight, c.claimTTL).Result()
	if err != nil {
		return false, "", fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return true, "", nil
	}

	value, err := c.rdb.Get(ctx, idempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		ok, err = c.rdb.SetNX(ctx, idempotencyKey(key), inFlight, c.claimTTL).Result()
		if err != nil {
			return false, "", fmt.Errorf("claim idempotency key: %w", err)
		}
		return ok, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("read idempotency key: %w", err)
	}
	if value == inFlight {
		return false, "", nil
	}
	return false, value, nil
}

// Complete records the transaction created for key
func (c *Client) Complete(ctx context.Context, key, transactionID string) error {
	if err := c.rdb.Set(ctx, idempotencyKey(key), transactionID, c.ttl).Err(); err != nil {
		return fmt.Errorf("store idempotency result: %w", err)
	}
	return nil
}

// Release frees key so the request can be retried
func (c *Client) Release(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, idempotencyKey(key)).Err()
}
