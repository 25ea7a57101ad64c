package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PaymentCache remembers which order a payment already produced so redelivered
// notifications can be answered without a gateway round trip. The order ledger stays
// authoritative: a miss only means "ask the ledger".
type PaymentCache interface {
	Recall(ctx context.Context, paymentID string) (uint, bool, error)
	Remember(ctx context.Context, paymentID string, orderID uint) error
}

type redisPaymentCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPaymentCache(rdb *redis.Client, ttl time.Duration) PaymentCache {
	return &redisPaymentCache{rdb: rdb, ttl: ttl}
}

func paymentKey(paymentID string) string {
	return "idemp:payment:" + paymentID
}

func (c *redisPaymentCache) Recall(ctx context.Context, paymentID string) (uint, bool, error) {
	val, err := c.rdb.Get(ctx, paymentKey(paymentID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return uint(id), true, nil
}

// Remember keeps the first order id stored for a payment.
func (c *redisPaymentCache) Remember(ctx context.Context, paymentID string, orderID uint) error {
	return c.rdb.SetNX(ctx, paymentKey(paymentID), strconv.FormatUint(uint64(orderID), 10), c.ttl).Err()
}

type nopPaymentCache struct{}

// NewNopPaymentCache is used when Redis is not configured.
func NewNopPaymentCache() PaymentCache { return nopPaymentCache{} }

func (nopPaymentCache) Recall(context.Context, string) (uint, bool, error) { return 0, false, nil }

func (nopPaymentCache) Remember(context.Context, string, uint) error { return nil }
