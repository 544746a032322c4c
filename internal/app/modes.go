package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/freelanceshield/shieldd/internal/claims"
	"github.com/freelanceshield/shieldd/internal/pool"
	"github.com/freelanceshield/shieldd/internal/pricing"
	"github.com/freelanceshield/shieldd/internal/server"
	"github.com/freelanceshield/shieldd/internal/server/handler"
	"github.com/freelanceshield/shieldd/internal/server/ws"
	"github.com/freelanceshield/shieldd/internal/service"
)

// services holds the fully wired service layer for the API modes.
type services struct {
	quotes     *service.QuoteService
	reputation *service.ReputationService
	policies   *service.PolicyService
	claims     *service.ClaimService
	pools      *service.PoolService
	evidence   *service.EvidenceService
}

// ServeMode starts the HTTP API and the WebSocket hub. Pool snapshots are
// fetched on demand; no background refresh loop runs.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	svcs := a.buildServices(deps)
	a.startHTTPServer(ctx, g, deps, svcs)

	return g.Wait()
}

// MonitorMode runs only the pool refresh loop: ledger polling, metrics cache
// fills, pool-channel events, and low-reserve alerts. No API is served.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	pools := a.buildPoolService(deps)
	g.Go(func() error {
		return pools.Run(ctx)
	})

	return g.Wait()
}

// FullMode starts the HTTP API, the WebSocket hub, and the pool refresh loop.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	svcs := a.buildServices(deps)
	g.Go(func() error {
		return svcs.pools.Run(ctx)
	})
	a.startHTTPServer(ctx, g, deps, svcs)

	return g.Wait()
}

// buildCalculator assembles the premium calculator from configuration,
// falling back to the standard tables when no weights are configured.
func (a *App) buildCalculator() *pricing.Calculator {
	jobTypes := pricing.DefaultJobTypeWeights()
	if len(a.cfg.Pricing.JobTypeWeights) > 0 {
		jobTypes = pricing.NewWeightTable(a.cfg.Pricing.JobTypeWeights)
	}
	industries := pricing.DefaultIndustryWeights()
	if len(a.cfg.Pricing.IndustryWeights) > 0 {
		industries = pricing.NewWeightTable(a.cfg.Pricing.IndustryWeights)
	}
	rates := pricing.Rates{
		BaseRate:                a.cfg.Pricing.BaseRate,
		CoverageRatioMultiplier: a.cfg.Pricing.CoverageRatioMultiplier,
		PeriodMultiplier:        a.cfg.Pricing.PeriodMultiplier,
		MaxCoverageRatio:        a.cfg.Pricing.MaxCoverageRatio,
		MinPremium:              a.cfg.Pricing.MinPremium,
		MarketConditionFactor:   a.cfg.Pricing.MarketConditionFactor,
		MinCoveragePeriodDays:   a.cfg.Pricing.MinPeriodDays,
		MaxCoveragePeriodDays:   a.cfg.Pricing.MaxPeriodDays,
	}
	return pricing.NewCalculator(jobTypes, industries, rates)
}

// buildPoolService assembles the pool solvency service from configuration.
func (a *App) buildPoolService(deps *Dependencies) *service.PoolService {
	return service.NewPoolService(
		deps.Ledger,
		deps.MetricsCache,
		deps.SignalBus,
		deps.Notifier,
		service.PoolServiceConfig{
			Params: pool.Params{
				BaseReserveRatio:  a.cfg.Pool.BaseReserveRatio,
				RecommendedBuffer: a.cfg.Pool.RecommendedBuffer,
				MaxCoverageAmount: a.cfg.Pool.MaxCoverageAmount,
			},
			CacheTTL:        time.Duration(a.cfg.Redis.MetricsTTLSec) * time.Second,
			RefreshInterval: a.cfg.Ledger.Refresh(),
			LowReserveAlert: a.cfg.Pool.LowReserveAlert,
		},
		a.logger,
	)
}

// buildServices wires the full service layer for the API modes.
func (a *App) buildServices(deps *Dependencies) *services {
	calc := a.buildCalculator()
	pools := a.buildPoolService(deps)

	// A breach attachment counts as verified only when the object is
	// actually present in evidence storage.
	verifier := claims.NewAttachmentBreachVerifier(func(ctx context.Context, key string) bool {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		ok, err := deps.EvidenceReader.Exists(checkCtx, key)
		return err == nil && ok
	})
	adjudicator := claims.NewAdjudicator(
		claims.Thresholds{
			ArbitrationThreshold: a.cfg.Claims.ArbitrationThreshold,
			AutoClaimLimit:       a.cfg.Claims.AutoClaimLimit,
			AutoProcessThreshold: a.cfg.Claims.AutoProcessThreshold,
		},
		claims.NewStaticSelector(a.cfg.Claims.Arbitrators),
		verifier,
	)

	return &services{
		quotes: service.NewQuoteService(
			calc,
			deps.QuoteStore,
			deps.QuoteCache,
			time.Duration(a.cfg.Redis.QuoteTTLMinutes)*time.Minute,
			a.logger,
		),
		reputation: service.NewReputationService(nil, a.logger),
		policies:   service.NewPolicyService(deps.PolicyStore, calc, nil, a.logger),
		claims: service.NewClaimService(
			deps.PolicyStore,
			deps.ClaimStore,
			adjudicator,
			pools,
			deps.LockManager,
			deps.SignalBus,
			deps.Notifier,
			time.Duration(a.cfg.Claims.PayoutLockTTLSec)*time.Second,
			nil,
			a.logger,
		),
		pools:    pools,
		evidence: service.NewEvidenceService(deps.EvidenceWriter, deps.EvidenceReader, deps.EvidenceSigner, a.logger),
	}
}

// startHTTPServer registers all handlers, starts the WebSocket hub, and runs
// the HTTP server until the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(a.cfg.Mode, a.logger),
		Quotes:     handler.NewQuoteHandler(svcs.quotes, a.logger),
		Reputation: handler.NewReputationHandler(svcs.reputation, a.logger),
		Policies:   handler.NewPolicyHandler(svcs.policies, a.logger),
		Claims:     handler.NewClaimHandler(svcs.claims, svcs.evidence, a.logger),
		Pool:       handler.NewPoolHandler(svcs.pools, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  time.Duration(a.cfg.Server.RateWindowSec) * time.Second,
	}, handlers, deps.RateLimiter, hub, a.logger)

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return srv.Start()
	})
}
