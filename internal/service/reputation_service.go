package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/reputation"
)

// ReputationService scores reputation profiles. Scoring itself is a pure
// function of the profile and the clock; the service adds logging and a
// stable clock injection point.
type ReputationService struct {
	now    func() time.Time
	logger *slog.Logger
}

// NewReputationService creates a ReputationService. A nil now function uses
// the wall clock.
func NewReputationService(now func() time.Time, logger *slog.Logger) *ReputationService {
	if now == nil {
		now = time.Now
	}
	return &ReputationService{
		now:    now,
		logger: logger.With(slog.String("component", "reputation_service")),
	}
}

// Score computes the reputation score, discount tier, and improvement areas
// for a profile.
func (s *ReputationService) Score(ctx context.Context, p domain.ReputationProfile) domain.ReputationScoreResult {
	result := reputation.Score(p, s.now())

	s.logger.InfoContext(ctx, "reputation scored",
		slog.Float64("score", result.Score),
		slog.String("risk_level", string(result.RiskLevel)),
		slog.Float64("premium_discount_pct", result.PremiumDiscount),
	)

	return result
}

// PremiumFactor maps a score to its premium multiplier.
func (s *ReputationService) PremiumFactor(score float64) float64 {
	return reputation.PremiumFactor(score)
}
