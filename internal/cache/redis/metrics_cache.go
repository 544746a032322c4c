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

// metricsKey is the single key holding the latest pool metrics snapshot.
const metricsKey = "pool:metrics"

// MetricsCache implements domain.MetricsCache using a JSON blob under a
// single key with a TTL. A stale or missing snapshot returns
// domain.ErrNotFound so callers fall through to the ledger.
type MetricsCache struct {
	rdb *redis.Client
}

var _ domain.MetricsCache = (*MetricsCache)(nil)

// NewMetricsCache creates a MetricsCache backed by the given Client.
func NewMetricsCache(c *Client) *MetricsCache {
	return &MetricsCache{rdb: c.Underlying()}
}

// Set stores the metrics snapshot with the given TTL.
func (mc *MetricsCache) Set(ctx context.Context, m domain.RiskPoolMetrics, ttl time.Duration) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("redis: marshal pool metrics: %w", err)
	}
	if err := mc.rdb.Set(ctx, metricsKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set pool metrics: %w", err)
	}
	return nil
}

// Get retrieves the metrics snapshot, or domain.ErrNotFound when absent or
// expired.
func (mc *MetricsCache) Get(ctx context.Context) (domain.RiskPoolMetrics, error) {
	data, err := mc.rdb.Get(ctx, metricsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.RiskPoolMetrics{}, domain.ErrNotFound
		}
		return domain.RiskPoolMetrics{}, fmt.Errorf("redis: get pool metrics: %w", err)
	}

	var m domain.RiskPoolMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.RiskPoolMetrics{}, fmt.Errorf("redis: unmarshal pool metrics: %w", err)
	}
	return m, nil
}
