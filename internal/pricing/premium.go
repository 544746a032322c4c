package pricing

import (
	"fmt"
	"math"

	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/reputation"
)

// Rates holds the tunable premium parameters. Currency fields are minor
// units of the reference currency.
type Rates struct {
	BaseRate                float64
	CoverageRatioMultiplier float64
	PeriodMultiplier        float64
	MaxCoverageRatio        float64
	MinPremium              float64
	MarketConditionFactor   float64
	MinCoveragePeriodDays   int
	MaxCoveragePeriodDays   int
}

// DefaultRates returns the standard premium parameters.
func DefaultRates() Rates {
	return Rates{
		BaseRate:                10,
		CoverageRatioMultiplier: 0.75,
		PeriodMultiplier:        1.1,
		MaxCoverageRatio:        15.0,
		MinPremium:              1,
		MarketConditionFactor:   1.0,
		MinCoveragePeriodDays:   7,
		MaxCoveragePeriodDays:   365,
	}
}

// DefaultReputationScore is assumed when a quote carries no reputation
// score. Callers recording priced quotes should use the same value.
const DefaultReputationScore = 80

// riskScore weighting coefficients. The four factor scores are each scaled
// to 0-100 before weighting.
const (
	riskWeightAdjustment = 0.20
	riskWeightClaims     = 0.15
	riskWeightCoverage   = 0.30
	riskWeightReputation = 0.35
)

// Calculator prices policy quotes against injected weight tables and rates.
// It is stateless and safe for concurrent use.
type Calculator struct {
	jobTypes   WeightTable
	industries WeightTable
	rates      Rates
}

// NewCalculator creates a Calculator with the given weight tables and rates.
func NewCalculator(jobTypes, industries WeightTable, rates Rates) *Calculator {
	return &Calculator{
		jobTypes:   jobTypes,
		industries: industries,
		rates:      rates,
	}
}

// NewDefaultCalculator creates a Calculator with the standard tables and
// rates.
func NewDefaultCalculator() *Calculator {
	return NewCalculator(DefaultJobTypeWeights(), DefaultIndustryWeights(), DefaultRates())
}

// Validate checks a quote's inputs. Unknown job types and industries are not
// a failure; they resolve to the neutral weight through the table default.
func (c *Calculator) Validate(q domain.PolicyQuote) error {
	if q.CoverageAmount <= 0 {
		return &domain.ValidationError{Field: "coverage_amount", Reason: "must be positive"}
	}
	if q.PeriodDays < c.rates.MinCoveragePeriodDays || q.PeriodDays > c.rates.MaxCoveragePeriodDays {
		return &domain.ValidationError{
			Field: "period_days",
			Reason: fmt.Sprintf("must be between %d and %d",
				c.rates.MinCoveragePeriodDays, c.rates.MaxCoveragePeriodDays),
		}
	}
	if q.ReputationScore != nil && (*q.ReputationScore < 0 || *q.ReputationScore > 100) {
		return &domain.ValidationError{Field: "reputation_score", Reason: "must be between 0 and 100"}
	}
	if q.ClaimHistoryCount < 0 {
		return &domain.ValidationError{Field: "claim_history_count", Reason: "must not be negative"}
	}
	return nil
}

// Price computes the premium and companion risk score for a quote.
//
// The premium is the product of the base rate and five adjustment factors,
// floored at the minimum premium:
//
//	premium = max(minPremium, baseRate * coverageRatio * periodAdjustment
//	              * riskAdjustment * reputationFactor * claimsImpact
//	              * marketConditions)
//
// Premium grows super-linearly with both coverage amount and period, and
// strictly decreases as the reputation score rises. Validation failures are
// returned as *domain.ValidationError; no default breakdown is substituted.
func (c *Calculator) Price(q domain.PolicyQuote) (domain.PremiumBreakdown, error) {
	if err := c.Validate(q); err != nil {
		return domain.PremiumBreakdown{}, err
	}

	repScore := float64(DefaultReputationScore)
	if q.ReputationScore != nil {
		repScore = *q.ReputationScore
	}

	// Non-linear coverage scaling with a logarithmic boost for large
	// coverage amounts, capped at MaxCoverageRatio.
	thousands := q.CoverageAmount / 1000
	coverageRatio := math.Min(
		math.Pow(thousands, c.rates.CoverageRatioMultiplier)*
			(1+math.Log10(math.Max(1, thousands))),
		c.rates.MaxCoverageRatio,
	)

	periodAdjustment := math.Pow(float64(q.PeriodDays)/30, c.rates.PeriodMultiplier)

	riskAdjustment := c.jobTypes.Weight(string(q.JobType)) * c.industries.Weight(string(q.Industry))

	reputationFactor := reputation.PremiumFactor(repScore)

	claimsImpact := 1 + float64(q.ClaimHistoryCount)*0.15

	premium := c.rates.BaseRate *
		coverageRatio *
		periodAdjustment *
		riskAdjustment *
		reputationFactor *
		claimsImpact *
		c.rates.MarketConditionFactor
	premium = math.Max(premium, c.rates.MinPremium)

	return domain.PremiumBreakdown{
		Premium:   premium,
		RiskScore: riskScore(riskAdjustment, q.ClaimHistoryCount, coverageRatio, reputationFactor),
		Factors: domain.PremiumFactors{
			BaseRate:         c.rates.BaseRate,
			CoverageRatio:    coverageRatio,
			PeriodAdjustment: periodAdjustment,
			RiskAdjustment:   riskAdjustment,
			ReputationFactor: reputationFactor,
			MarketConditions: c.rates.MarketConditionFactor,
		},
	}, nil
}

// MaxCoverage returns the largest coverage amount the pool should underwrite
// for the given category, as a function of the pool's total value locked.
// Riskier categories get proportionally less headroom; the result is capped
// at maxCoverageCap.
func (c *Calculator) MaxCoverage(totalValueLocked float64, jobType domain.JobType, industry domain.Industry, maxCoverageCap float64) float64 {
	riskAdjustment := c.jobTypes.Weight(string(jobType)) * c.industries.Weight(string(industry))
	maxRatio := 0.5 / riskAdjustment
	return math.Min(totalValueLocked*maxRatio, maxCoverageCap)
}

// riskScore folds the four pricing factors into a 0-100 score, higher being
// riskier.
func riskScore(riskAdjustment float64, claimHistory int, coverageRatio, reputationFactor float64) float64 {
	// riskAdjustment typically spans 0.8-1.3; spread it over 0-100.
	adjustmentScore := math.Min(100, (riskAdjustment-0.8)*200)
	claimsScore := math.Min(100, float64(claimHistory)*25)
	coverageScore := math.Min(100, coverageRatio*20)
	// reputationFactor spans 0.70-1.00; spread it over 0-100.
	reputationScore := math.Min(100, (reputationFactor-0.7)*333)

	score := adjustmentScore*riskWeightAdjustment +
		claimsScore*riskWeightClaims +
		coverageScore*riskWeightCoverage +
		reputationScore*riskWeightReputation

	return math.Min(100, math.Max(0, score))
}
