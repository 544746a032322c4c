package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/freelanceshield/shieldd/internal/domain"
)

// QuoteCache implements domain.QuoteCache using per-fingerprint JSON blobs
// with a TTL. Identical quote inputs hash to the same fingerprint, so a
// repeated request inside the TTL returns the cached breakdown without
// re-pricing.
type QuoteCache struct {
	rdb *redis.Client
}

var _ domain.QuoteCache = (*QuoteCache)(nil)

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func quoteKey(fingerprint string) string {
	return "quote:" + fingerprint
}

// Set stores a priced breakdown under the quote fingerprint.
func (qc *QuoteCache) Set(ctx context.Context, fingerprint string, b domain.PremiumBreakdown, ttl time.Duration) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("redis: marshal quote %s: %w", fingerprint, err)
	}
	if err := qc.rdb.Set(ctx, quoteKey(fingerprint), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", fingerprint, err)
	}
	return nil
}

// Get retrieves a cached breakdown, or domain.ErrNotFound when absent.
func (qc *QuoteCache) Get(ctx context.Context, fingerprint string) (domain.PremiumBreakdown, error) {
	data, err := qc.rdb.Get(ctx, quoteKey(fingerprint)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PremiumBreakdown{}, domain.ErrNotFound
		}
		return domain.PremiumBreakdown{}, fmt.Errorf("redis: get quote %s: %w", fingerprint, err)
	}

	var b domain.PremiumBreakdown
	if err := json.Unmarshal(data, &b); err != nil {
		return domain.PremiumBreakdown{}, fmt.Errorf("redis: unmarshal quote %s: %w", fingerprint, err)
	}
	return b, nil
}
