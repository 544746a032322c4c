// Package service implements the application services that tie the pricing,
// reputation, and claims engines to storage, caching, the ledger, and
// notifications.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/freelanceshield/shieldd/internal/cache/redis"
	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/notify"
	"github.com/freelanceshield/shieldd/internal/pool"
)

// PoolService maintains the risk-pool metrics snapshot. Reads go through the
// metrics cache; the refresh loop re-reads the ledger on an interval and
// publishes each new snapshot on the pool channel.
type PoolService struct {
	ledger   domain.LedgerReader
	cache    domain.MetricsCache
	bus      domain.SignalBus
	notifier *notify.Notifier
	params   pool.Params

	cacheTTL        time.Duration
	refreshInterval time.Duration
	lowReserveAlert float64

	logger *slog.Logger
}

// PoolServiceConfig bundles the PoolService tunables.
type PoolServiceConfig struct {
	Params          pool.Params
	CacheTTL        time.Duration
	RefreshInterval time.Duration
	LowReserveAlert float64
}

// NewPoolService creates a PoolService with all required dependencies. The
// notifier and bus may be nil; alerts and events are then skipped.
func NewPoolService(
	ledger domain.LedgerReader,
	cache domain.MetricsCache,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	cfg PoolServiceConfig,
	logger *slog.Logger,
) *PoolService {
	return &PoolService{
		ledger:          ledger,
		cache:           cache,
		bus:             bus,
		notifier:        notifier,
		params:          cfg.Params,
		cacheTTL:        cfg.CacheTTL,
		refreshInterval: cfg.RefreshInterval,
		lowReserveAlert: cfg.LowReserveAlert,
		logger:          logger.With(slog.String("component", "pool_service")),
	}
}

// View returns a solvency view over the freshest available metrics. The
// cache is consulted first; a miss falls through to the ledger and fills the
// cache.
func (s *PoolService) View(ctx context.Context) (pool.View, error) {
	m, err := s.cache.Get(ctx)
	if err == nil {
		return pool.NewView(m, s.params), nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "pool_service: metrics cache read failed",
			slog.String("error", err.Error()),
		)
	}

	m, err = s.fetch(ctx)
	if err != nil {
		return pool.View{}, err
	}
	return pool.NewView(m, s.params), nil
}

// FreshView bypasses the cache and reads the ledger directly. The claim
// service uses it to re-validate liquidity under the payout lock.
func (s *PoolService) FreshView(ctx context.Context) (pool.View, error) {
	m, err := s.fetch(ctx)
	if err != nil {
		return pool.View{}, err
	}
	return pool.NewView(m, s.params), nil
}

// Refresh reads the ledger, updates the cache, publishes the snapshot on the
// pool channel, and raises a low-reserve alert when the reserve ratio falls
// below the configured floor.
func (s *PoolService) Refresh(ctx context.Context) error {
	m, err := s.fetch(ctx)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "pool metrics refreshed",
		slog.Float64("total_staked", m.TotalStaked),
		slog.Float64("total_coverage", m.TotalCoverage),
		slog.Float64("reserve_ratio", m.ReserveRatio()),
		slog.Int("active_policies", m.ActivePolicies),
	)

	if s.bus != nil {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("pool_service: marshal metrics: %w", err)
		}
		if err := s.bus.Publish(ctx, redis.ChannelPool, payload); err != nil {
			s.logger.WarnContext(ctx, "pool_service: publish metrics failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if s.notifier != nil && s.lowReserveAlert > 0 && m.TotalCoverage > 0 &&
		m.ReserveRatio() < s.lowReserveAlert {
		msg := fmt.Sprintf("Reserve ratio %.3f is below the %.3f alert floor (staked %.0f, coverage %.0f).",
			m.ReserveRatio(), s.lowReserveAlert, m.TotalStaked, m.TotalCoverage)
		if err := s.notifier.Notify(ctx, notify.EventLowReserve, "Low pool reserve", msg); err != nil {
			s.logger.WarnContext(ctx, "pool_service: low reserve alert failed",
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// Run refreshes the snapshot on the configured interval until the context is
// cancelled. Individual refresh failures are logged and retried on the next
// tick.
func (s *PoolService) Run(ctx context.Context) error {
	interval := s.refreshInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	s.logger.InfoContext(ctx, "pool refresh loop started",
		slog.Duration("interval", interval),
	)

	if err := s.Refresh(ctx); err != nil {
		s.logger.ErrorContext(ctx, "pool_service: initial refresh failed",
			slog.String("error", err.Error()),
		)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "pool refresh loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.ErrorContext(ctx, "pool_service: refresh failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// fetch reads the ledger and updates the cache.
func (s *PoolService) fetch(ctx context.Context) (domain.RiskPoolMetrics, error) {
	m, err := s.ledger.PoolMetrics(ctx)
	if err != nil {
		return domain.RiskPoolMetrics{}, fmt.Errorf("pool_service: read ledger: %w", err)
	}
	if err := s.cache.Set(ctx, m, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "pool_service: metrics cache write failed",
			slog.String("error", err.Error()),
		)
	}
	return m, nil
}
