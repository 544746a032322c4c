// Package reputation converts a user's verifiable activity history into a
// 0-100 reputation score, a risk tier, and a premium discount. Scoring is a
// pure function of the profile and the evaluation time; nothing is persisted
// here.
package reputation

import (
	"math"
	"time"

	"github.com/freelanceshield/shieldd/internal/domain"
)

// Category weights. The five category sub-scores are weighted and summed on
// top of a neutral baseline of 50; the claims penalty is applied unweighted.
const (
	weightWorkHistory    = 0.30
	weightPaymentHistory = 0.25
	weightDisputes       = 0.20
	weightActivity       = 0.15
	weightGovernance     = 0.10

	baselineScore = 50
)

// Score computes the reputation score for a profile at the given evaluation
// time. All numeric profile fields are treated as already-validated
// non-negative values.
func Score(p domain.ReputationProfile, now time.Time) domain.ReputationScoreResult {
	var (
		workHistory    float64
		paymentHistory float64
		disputes       float64
		activity       float64
		governance     float64

		improvements []string
		recent       []domain.ActivityEntry
	)

	// ---- Work history ----

	switch {
	case p.CompletedContracts >= 20:
		workHistory += 25
	case p.CompletedContracts >= 10:
		workHistory += 20
	case p.CompletedContracts >= 5:
		workHistory += 15
	case p.CompletedContracts >= 1:
		workHistory += 10
	default:
		improvements = append(improvements, "Complete contracts to establish work history")
	}

	switch {
	case p.ContractsLast90Days >= 5:
		workHistory += 5
		recent = append(recent, domain.ActivityEntry{
			Description: "Completed 5+ contracts in the last 90 days",
			Impact:      5,
			Date:        now.AddDate(0, 0, -7),
		})
	case p.ContractsLast90Days >= 3:
		workHistory += 3
	case p.ContractsLast90Days >= 1:
		workHistory += 1
	default:
		improvements = append(improvements, "Complete more contracts in the last 90 days")
	}

	// ---- Payment history ----

	var onTimeRate float64
	if p.TotalTransactions > 0 {
		onTimeRate = float64(p.OnTimePayments) / float64(p.TotalTransactions)
	}
	switch {
	case onTimeRate >= 0.95:
		paymentHistory += 25
		recent = append(recent, domain.ActivityEntry{
			Description: "Maintained excellent on-time rate",
			Impact:      5,
			Date:        now.AddDate(0, 0, -14),
		})
	case onTimeRate >= 0.90:
		paymentHistory += 20
	case onTimeRate >= 0.85:
		paymentHistory += 15
	case onTimeRate >= 0.80:
		paymentHistory += 10
	case p.TotalTransactions > 0:
		paymentHistory += 5
		improvements = append(improvements, "Improve on-time payment/delivery rate to at least 85%")
	}

	// ---- Dispute resolution ----

	if p.Disputes == 0 {
		disputes += 10
	} else {
		disputeRatio := 1.0
		if p.CompletedContracts > 0 {
			disputeRatio = float64(p.Disputes) / float64(p.CompletedContracts)
		}
		switch {
		case disputeRatio <= 0.05:
			disputes += 8
		case disputeRatio <= 0.1:
			disputes += 5
		case disputeRatio <= 0.2:
			improvements = append(improvements, "Reduce frequency of disputes")
		default:
			disputes -= 10
			improvements = append(improvements, "High dispute ratio is affecting your score negatively")
			recent = append(recent, domain.ActivityEntry{
				Description: "High dispute frequency detected",
				Impact:      -10,
				Date:        now.AddDate(0, -1, 0),
			})
		}

		// Outcome quality: disputes resolved amicably or in the user's
		// favor, net of rulings against.
		resolutionRate := float64(p.DisputesResolved-p.DisputesRuledAgainst) / float64(p.Disputes)
		switch {
		case resolutionRate >= 0.8:
			disputes += 10
		case resolutionRate >= 0.6:
			disputes += 5
		case resolutionRate >= 0.4:
			// No adjustment for an average resolution record.
		default:
			disputes -= 5
			improvements = append(improvements, "Improve dispute resolution outcomes")
		}
	}

	// ---- Activity ----

	var ageScore float64
	switch {
	case p.AccountAgeMonths > 36:
		ageScore = 7
	case p.AccountAgeMonths > 24:
		ageScore = 6
	case p.AccountAgeMonths > 12:
		ageScore = 5
	case p.AccountAgeMonths > 6:
		ageScore = 3
	default:
		ageScore = 1
		improvements = append(improvements, "Build account history over time")
	}

	var recencyScore float64
	switch {
	case p.LastActiveMonths == 0:
		recencyScore = 8
	case p.LastActiveMonths <= 1:
		recencyScore = 7
	case p.LastActiveMonths <= 3:
		recencyScore = 5
	case p.LastActiveMonths <= 6:
		recencyScore = 2
	default:
		recencyScore = 0
		improvements = append(improvements, "Maintain regular platform activity")
		recent = append(recent, domain.ActivityEntry{
			Description: "Account inactivity detected",
			Impact:      -5,
			Date:        now.AddDate(0, -2, 0),
		})
	}
	activity = ageScore + recencyScore

	// ---- Governance ----

	switch {
	case p.StakingParticipation && p.GovernanceParticipation:
		governance += 10
		recent = append(recent, domain.ActivityEntry{
			Description: "Active participation in platform governance",
			Impact:      5,
			Date:        now.AddDate(0, 0, -21),
		})
	case p.StakingParticipation:
		governance += 5
		improvements = append(improvements, "Participate in governance voting to improve score")
	case p.GovernanceParticipation:
		governance += 3
		improvements = append(improvements, "Stake tokens to improve score")
	default:
		improvements = append(improvements, "Participate in staking and governance to improve score")
	}

	// ---- Claims penalty (unweighted) ----

	var claimsPenalty float64
	switch {
	case p.ClaimsMade > 3:
		claimsPenalty = -15
		improvements = append(improvements, "Reduce frequency of insurance claims")
	case p.ClaimsMade > 1:
		claimsPenalty = -10
	case p.ClaimsMade == 1:
		claimsPenalty = -5
	}
	if p.FraudFlagged {
		claimsPenalty -= 30
		improvements = append(improvements, "Address fraud flags on account")
		recent = append(recent, domain.ActivityEntry{
			Description: "Fraud flag detected on account",
			Impact:      -30,
			Date:        now.AddDate(0, 0, -45),
		})
	}

	// ---- Time decay ----

	decay := timeDecayFactor(p.LastContractCompletion, now)

	breakdown := domain.ReputationBreakdown{
		WorkHistory:       workHistory * weightWorkHistory,
		PaymentHistory:    paymentHistory * weightPaymentHistory,
		DisputeResolution: disputes * weightDisputes,
		Activity:          activity * weightActivity,
		Governance:        governance * weightGovernance,
	}

	total := baselineScore +
		breakdown.WorkHistory +
		breakdown.PaymentHistory +
		breakdown.DisputeResolution +
		breakdown.Activity +
		breakdown.Governance +
		claimsPenalty
	total *= decay
	total = math.Min(100, math.Max(0, total))

	level, discount, tier := tierFor(total)

	return domain.ReputationScoreResult{
		Score:            math.Round(total),
		Breakdown:        breakdown,
		RiskLevel:        level,
		PremiumDiscount:  math.Round(discount),
		DiscountTier:     tier,
		ImprovementAreas: improvements,
		RecentActivity:   recent,
		TimeDecayFactor:  decay,
	}
}

// timeDecayFactor fades reputation that is not maintained: 5% off after two
// idle months, 10% after three, 20% after six.
func timeDecayFactor(lastCompletion *time.Time, now time.Time) float64 {
	if lastCompletion == nil {
		return 1.0
	}
	days := int(now.Sub(*lastCompletion).Hours() / 24)
	switch {
	case days > 180:
		return 0.8
	case days > 90:
		return 0.9
	case days > 60:
		return 0.95
	default:
		return 1.0
	}
}

// tierFor maps a final score to its risk band, discount percentage, and
// discount tier name.
func tierFor(score float64) (domain.RiskLevel, float64, string) {
	switch {
	case score >= 75:
		return domain.RiskLevelLow, 22 + (score-75)/25*8, "Premium"
	case score >= 50:
		return domain.RiskLevelMedium, 15 + (score-50)/25*7, "Standard"
	default:
		return domain.RiskLevelHigh, score / 50 * 15, "Basic"
	}
}
