// Package cache wraps redis for short-lived coordination state. The
// lifecycle engine uses it for per-payment locks so verify and webhook
// reconciliation do not process the same payment simultaneously.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client  *redis.Client
	lockTTL time.Duration
}

func NewRedisCache(addr, password string, db int, lockTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:  redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		lockTTL: lockTTL,
	}
}

// NewWithClient is used by tests to inject a mock client.
func NewWithClient(client *redis.Client, lockTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, lockTTL: lockTTL}
}

func paymentLockKey(paymentID int64) string {
	return fmt.Sprintf("lock:payment:%d", paymentID)
}

// AcquirePaymentLock takes the per-payment lock. The TTL bounds how
// long a crashed holder can block reconciliation.
func (c *RedisCache) AcquirePaymentLock(ctx context.Context, paymentID int64) (bool, error) {
	return c.client.SetNX(ctx, paymentLockKey(paymentID), "locked", c.lockTTL).Result()
}

func (c *RedisCache) ReleasePaymentLock(ctx context.Context, paymentID int64) error {
	return c.client.Del(ctx, paymentLockKey(paymentID)).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
