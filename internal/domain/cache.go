package domain

import (
	"context"
	"time"
)

// MetricsCache stores the latest risk-pool metrics snapshot so that quote and
// claim paths do not hit the ledger on every request.
type MetricsCache interface {
	Set(ctx context.Context, m RiskPoolMetrics, ttl time.Duration) error
	Get(ctx context.Context) (RiskPoolMetrics, error)
}

// QuoteCache stores recently issued premium breakdowns keyed by the quote's
// input fingerprint, making repeated identical quote requests idempotent and
// cheap.
type QuoteCache interface {
	Set(ctx context.Context, fingerprint string, b PremiumBreakdown, ttl time.Duration) error
	Get(ctx context.Context, fingerprint string) (PremiumBreakdown, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking. The claim service holds a lock
// per policy while it re-validates pool liquidity and records a payout, so
// the admissibility check and the commit are not interleaved with another
// payout against the same pool snapshot.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out of claim and pool events to the
// websocket hub and any other subscriber.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) (<-chan SignalMessage, error)
}

// SignalMessage is a single pub/sub delivery.
type SignalMessage struct {
	Channel string
	Payload []byte
}
