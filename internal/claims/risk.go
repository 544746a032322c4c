// Package claims implements claim risk evaluation and the adjudication state
// machine that decides whether a submitted claim is auto-approved, sent to
// arbitration, or refused.
package claims

import (
	"math"

	"github.com/freelanceshield/shieldd/internal/domain"
)

// Review flag thresholds. A claim is flagged for manual review when its risk
// score, coverage ratio, or prior claim count crosses any of these.
const (
	reviewScoreThreshold    = 70
	reviewCoverageRatio     = 0.5
	reviewPreviousClaimsMax = 2
)

// EvaluateRisk scores a claim on a 0-100 scale from four factors: how much
// is claimed per day of policy age, how young the policy is, how many claims
// preceded this one, and how large the claim is relative to the coverage.
// Pure function; identical inputs always produce identical output.
func EvaluateRisk(claimAmount float64, policyAgeDays, previousClaimsCount int, coverageAmount float64) domain.ClaimRiskEvaluation {
	amountPerDay := claimAmount / math.Max(float64(policyAgeDays), 1)
	amountFactor := math.Min(100, amountPerDay*10)

	// Risk decays as the policy ages; floor of 10 so age alone never zeroes
	// the factor.
	ageFactor := math.Max(10, 100-float64(policyAgeDays)/3.65)

	historyFactor := math.Min(100, float64(previousClaimsCount)*25+25)

	coverageRatio := claimAmount / coverageAmount
	coverageRatioFactor := math.Min(100, coverageRatio*100*2)

	score := amountFactor*0.30 +
		ageFactor*0.20 +
		historyFactor*0.25 +
		coverageRatioFactor*0.25

	flagged := score > reviewScoreThreshold ||
		coverageRatio > reviewCoverageRatio ||
		previousClaimsCount > reviewPreviousClaimsMax

	return domain.ClaimRiskEvaluation{
		RiskScore: score,
		Factors: domain.ClaimRiskFactors{
			AmountFactor:        amountFactor,
			AgeFactor:           ageFactor,
			HistoryFactor:       historyFactor,
			CoverageRatioFactor: coverageRatioFactor,
		},
		FlaggedForReview: flagged,
	}
}
