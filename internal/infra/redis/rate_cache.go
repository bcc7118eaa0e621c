package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"copytrade-subscription/internal/domain"
)

// RateCache remembers the last successfully fetched FX rate so a flaky rate
// source degrades to the most recent good value instead of the static
// fallback. Entries outlive the refresh interval by a wide margin.
type RateCache struct {
	client *Client
	ttl    time.Duration
}

func NewRateCache(client *Client) *RateCache {
	return &RateCache{client: client, ttl: 24 * time.Hour}
}

func rateKey(base, quote string) string { return "fx:" + base + ":" + quote }

func (c *RateCache) Put(ctx context.Context, base, quote string, rate float64) error {
	return c.client.Set(ctx, rateKey(base, quote), strconv.FormatFloat(rate, 'f', -1, 64), c.ttl)
}

func (c *RateCache) Get(ctx context.Context, base, quote string) (float64, error) {
	raw, err := c.client.Get(ctx, rateKey(base, quote))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, domain.ErrNotFound
		}
		return 0, domain.ErrOperationFailed
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil || rate <= 0 {
		return 0, domain.ErrNotFound
	}
	return rate, nil
}
