package pricefeed

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuoteCache is a redis-backed quote cache so repeated refreshes within
// the TTL do not hit the provider again.
type QuoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

const quoteKeyPrefix = "quote:"

// NewQuoteCache creates a cache over an existing redis client.
func NewQuoteCache(client *redis.Client, ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &QuoteCache{client: client, ttl: ttl}
}

// Get returns the cached price and whether it was present. A redis
// failure is returned so the caller can decide to fall through.
func (c *QuoteCache) Get(ctx context.Context, ticker string) (float64, bool, error) {
	raw, err := c.client.Get(ctx, quoteKeyPrefix+ticker).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

// Set stores the price under the cache TTL.
func (c *QuoteCache) Set(ctx context.Context, ticker string, price float64) error {
	value := strconv.FormatFloat(price, 'f', -1, 64)
	return c.client.Set(ctx, quoteKeyPrefix+ticker, value, c.ttl).Err()
}
