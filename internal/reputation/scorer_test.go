package reputation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freelanceshield/shieldd/internal/domain"
)

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

// establishedProfile is a veteran freelancer with a clean record: 20
// contracts, a 95% on-time rate, no disputes, no claims, three years of
// account history, active this month.
func establishedProfile() domain.ReputationProfile {
	return domain.ReputationProfile{
		CompletedContracts: 20,
		OnTimePayments:     19,
		TotalTransactions:  20,
		Disputes:           0,
		AccountAgeMonths:   36,
		LastActiveMonths:   0,
	}
}

func TestScoreEstablishedProfile(t *testing.T) {
	got := Score(establishedProfile(), testNow)

	// 50 + 25*0.30 + 25*0.25 + 10*0.20 + (6+8)*0.15 + 0 = 67.85
	assert.InDelta(t, 68, got.Score, 0.5)
	assert.Equal(t, domain.RiskLevelMedium, got.RiskLevel)
	assert.InDelta(t, 20, got.PremiumDiscount, 0.5)
	assert.Equal(t, "Standard", got.DiscountTier)
	assert.InDelta(t, 1.0, got.TimeDecayFactor, 1e-9)
}

func TestScoreBestPossibleProfile(t *testing.T) {
	p := domain.ReputationProfile{
		CompletedContracts:      40,
		ContractsLast90Days:     6,
		OnTimePayments:          100,
		TotalTransactions:       100,
		Disputes:                0,
		AccountAgeMonths:        48,
		LastActiveMonths:        0,
		StakingParticipation:    true,
		GovernanceParticipation: true,
	}

	got := Score(p, testNow)

	// The ladder tops out at 50 + 9 + 6.25 + 2 + 2.25 + 1 = 70.5: a perfect
	// record stays in the Medium Risk band.
	assert.InDelta(t, 70.5, got.Score, 0.6)
	assert.Equal(t, domain.RiskLevelMedium, got.RiskLevel)
	assert.Empty(t, got.ImprovementAreas)
}

func TestScoreNewAccount(t *testing.T) {
	got := Score(domain.ReputationProfile{}, testNow)

	// 50 + 10*0.20 (no disputes) + (1+8)*0.15 = 53.35
	assert.InDelta(t, 53.35, got.Score, 0.6)
	assert.Equal(t, domain.RiskLevelMedium, got.RiskLevel)
	assert.Contains(t, got.ImprovementAreas, "Complete contracts to establish work history")
	assert.Contains(t, got.ImprovementAreas, "Build account history over time")
	assert.Contains(t, got.ImprovementAreas, "Participate in staking and governance to improve score")
}

func TestScoreFraudPenalty(t *testing.T) {
	clean := Score(establishedProfile(), testNow)

	flagged := establishedProfile()
	flagged.FraudFlagged = true
	got := Score(flagged, testNow)

	assert.InDelta(t, clean.Score-30, got.Score, 0.6)
	assert.Equal(t, domain.RiskLevelHigh, got.RiskLevel)
	assert.Contains(t, got.ImprovementAreas, "Address fraud flags on account")
}

func TestScoreClaimsPenaltyLadder(t *testing.T) {
	base := Score(establishedProfile(), testNow).Score

	cases := []struct {
		claims  int
		penalty float64
	}{
		{1, 5},
		{2, 10},
		{3, 10},
		{4, 15},
	}
	for _, tc := range cases {
		p := establishedProfile()
		p.ClaimsMade = tc.claims
		got := Score(p, testNow)
		assert.InDelta(t, base-tc.penalty, got.Score, 0.6,
			"claimsMade=%d", tc.claims)
	}
}

func TestScoreTimeDecay(t *testing.T) {
	cases := []struct {
		idleDays int
		factor   float64
	}{
		{30, 1.0},
		{70, 0.95},
		{100, 0.9},
		{200, 0.8},
	}
	for _, tc := range cases {
		p := establishedProfile()
		last := testNow.AddDate(0, 0, -tc.idleDays)
		p.LastContractCompletion = &last

		got := Score(p, testNow)
		assert.InDelta(t, tc.factor, got.TimeDecayFactor, 1e-9, "idle %d days", tc.idleDays)
		assert.InDelta(t, 67.85*tc.factor, got.Score, 0.6, "idle %d days", tc.idleDays)
	}
}

func TestScoreDisputeLadder(t *testing.T) {
	p := establishedProfile()
	p.Disputes = 10
	p.DisputesResolved = 2
	p.DisputesRuledAgainst = 1

	got := Score(p, testNow)

	// Dispute ratio 0.5 costs 10 points and the poor resolution record
	// another 5, both at the 0.20 category weight.
	clean := Score(establishedProfile(), testNow)
	assert.Less(t, got.Score, clean.Score)
	assert.Contains(t, got.ImprovementAreas, "High dispute ratio is affecting your score negatively")
	assert.Contains(t, got.ImprovementAreas, "Improve dispute resolution outcomes")
}

func TestScoreBounds(t *testing.T) {
	profiles := []domain.ReputationProfile{
		{},
		establishedProfile(),
		{Disputes: 50, ClaimsMade: 10, FraudFlagged: true, LastActiveMonths: 12},
		{CompletedContracts: 100, ContractsLast90Days: 20, OnTimePayments: 50, TotalTransactions: 50},
	}
	for i, p := range profiles {
		got := Score(p, testNow)
		require.GreaterOrEqual(t, got.Score, 0.0, "profile %d", i)
		require.LessOrEqual(t, got.Score, 100.0, "profile %d", i)
	}
}

func TestScoreDeterministic(t *testing.T) {
	p := establishedProfile()
	first := Score(p, testNow)
	second := Score(p, testNow)
	assert.Equal(t, first, second)
}

func TestPremiumFactorBoundsAndMonotonic(t *testing.T) {
	prev := PremiumFactor(0)
	assert.InDelta(t, 1.00, prev, 1e-9)

	for score := 1.0; score <= 100; score++ {
		f := PremiumFactor(score)
		assert.GreaterOrEqual(t, f, 0.70, "score %.0f", score)
		assert.LessOrEqual(t, f, 1.00, "score %.0f", score)
		assert.LessOrEqual(t, f, prev, "factor must be non-increasing at score %.0f", score)
		prev = f
	}

	assert.InDelta(t, 0.70, PremiumFactor(100), 1e-9)
	assert.Less(t, PremiumFactor(100), PremiumFactor(0))
}

func TestPremiumFactorClampsInput(t *testing.T) {
	assert.Equal(t, PremiumFactor(0), PremiumFactor(-20))
	assert.Equal(t, PremiumFactor(100), PremiumFactor(250))
}
