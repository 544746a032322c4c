package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/freelanceshield/shieldd/internal/domain"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

// RateLimiter implements domain.RateLimiter using a sliding-window approach
// backed by Redis sorted sets and an atomic Lua script. The API middleware
// keys limits on the caller's remote address.
type RateLimiter struct {
	rdb           *redis.Client
	slidingWindow *redis.Script
}

var _ domain.RateLimiter = (*RateLimiter)(nil)

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{
		rdb:           c.Underlying(),
		slidingWindow: redis.NewScript(slidingWindowLua),
	}
}

func rateLimitKey(key string) string {
	return "ratelimit:" + key
}

// Allow checks whether a request for the given key is permitted under the
// sliding window rate limit. It returns true if the request is allowed (and
// the request is counted), or false if the limit has been reached.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMicro()

	result, err := rl.slidingWindow.Run(
		ctx,
		rl.rdb,
		[]string{rateLimitKey(key)},
		now,
		window.Microseconds(),
		limit,
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit allow %s: %w", key, err)
	}
	if len(result) < 2 {
		return false, fmt.Errorf("redis: rate limit allow %s: unexpected result length %d", key, len(result))
	}

	return result[0] == 1, nil
}
