package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/pricing"
)

// QuoteService prices policy quotes. Identical inputs inside the cache TTL
// return the cached breakdown; every freshly priced quote leaves an audit
// row behind.
type QuoteService struct {
	calc   *pricing.Calculator
	quotes domain.QuoteStore
	cache  domain.QuoteCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewQuoteService creates a QuoteService with all required dependencies.
// The cache may be nil, in which case every request is priced fresh.
func NewQuoteService(
	calc *pricing.Calculator,
	quotes domain.QuoteStore,
	cache domain.QuoteCache,
	ttl time.Duration,
	logger *slog.Logger,
) *QuoteService {
	return &QuoteService{
		calc:   calc,
		quotes: quotes,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "quote_service")),
	}
}

// Quote validates and prices a quote request. Validation failures surface as
// *domain.ValidationError. The audit insert is best-effort: a storage
// failure is logged but does not void the priced quote.
func (s *QuoteService) Quote(ctx context.Context, q domain.PolicyQuote) (domain.PremiumBreakdown, error) {
	if err := s.calc.Validate(q); err != nil {
		return domain.PremiumBreakdown{}, err
	}

	fp := fingerprint(q)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, fp); err == nil {
			return cached, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "quote_service: cache read failed",
				slog.String("error", err.Error()),
			)
		}
	}

	b, err := s.calc.Price(q)
	if err != nil {
		return domain.PremiumBreakdown{}, err
	}

	s.logger.InfoContext(ctx, "quote priced",
		slog.Float64("coverage_amount", q.CoverageAmount),
		slog.Int("period_days", q.PeriodDays),
		slog.String("job_type", string(q.JobType)),
		slog.Float64("premium", b.Premium),
		slog.Float64("risk_score", b.RiskScore),
	)

	repScore := float64(pricing.DefaultReputationScore)
	if q.ReputationScore != nil {
		repScore = *q.ReputationScore
	}
	record := domain.QuoteRecord{
		ID:              uuid.New().String(),
		CoverageAmount:  q.CoverageAmount,
		PeriodDays:      q.PeriodDays,
		JobType:         q.JobType,
		Industry:        q.Industry,
		ReputationScore: repScore,
		ClaimHistory:    q.ClaimHistoryCount,
		Premium:         b.Premium,
		RiskScore:       b.RiskScore,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.quotes.Insert(ctx, record); err != nil {
		s.logger.WarnContext(ctx, "quote_service: audit insert failed",
			slog.String("quote_id", record.ID),
			slog.String("error", err.Error()),
		)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, fp, b, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "quote_service: cache write failed",
				slog.String("error", err.Error()),
			)
		}
	}

	return b, nil
}

// MaxCoverage returns the largest coverage the pool can currently underwrite
// for the given job type and industry.
func (s *QuoteService) MaxCoverage(totalValueLocked float64, jobType domain.JobType, industry domain.Industry, cap float64) float64 {
	return s.calc.MaxCoverage(totalValueLocked, jobType, industry, cap)
}

// RecentQuotes returns the latest audit rows, newest first.
func (s *QuoteService) RecentQuotes(ctx context.Context, limit int) ([]domain.QuoteRecord, error) {
	records, err := s.quotes.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("quote_service: list recent: %w", err)
	}
	return records, nil
}

// fingerprint hashes the pricing inputs into a stable cache key.
func fingerprint(q domain.PolicyQuote) string {
	rep := "-"
	if q.ReputationScore != nil {
		rep = fmt.Sprintf("%.4f", *q.ReputationScore)
	}
	sum := sha256.Sum256(fmt.Appendf(nil, "%.2f|%d|%s|%s|%s|%d",
		q.CoverageAmount, q.PeriodDays, q.JobType, q.Industry, rep, q.ClaimHistoryCount))
	return hex.EncodeToString(sum[:16])
}
