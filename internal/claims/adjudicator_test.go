package claims

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/pool"
)

func healthyPool() pool.View {
	return pool.NewView(domain.RiskPoolMetrics{
		TotalStaked:    100_000,
		TotalCoverage:  100_000,
		ActivePolicies: 20,
	}, pool.DefaultParams())
}

func drainedPool() pool.View {
	return pool.NewView(domain.RiskPoolMetrics{
		TotalStaked:   100,
		TotalCoverage: 100_000,
	}, pool.DefaultParams())
}

func newTestAdjudicator(verifyAll bool) *Adjudicator {
	authenticate := func(context.Context, string) bool { return verifyAll }
	return NewAdjudicator(
		DefaultThresholds(),
		NewStaticSelector([]string{"arb-1", "arb-2", "arb-3"}),
		NewAttachmentBreachVerifier(authenticate),
	)
}

func matureClaim(amount float64) domain.ClaimRequest {
	return domain.ClaimRequest{
		PolicyID:       "pol-1",
		ClaimAmount:    amount,
		EvidenceType:   domain.EvidenceContractViolation,
		PolicyAgeDays:  180,
		CoverageAmount: 10_000,
	}
}

func TestAdjudicateRejectsOverCoverage(t *testing.T) {
	a := newTestAdjudicator(true)
	req := matureClaim(10_001)

	_, err := a.Adjudicate(context.Background(), req, healthyPool())
	assert.ErrorIs(t, err, domain.ErrInvalidClaim)
}

func TestAdjudicateRejectsNonPositiveAmount(t *testing.T) {
	a := newTestAdjudicator(true)

	for _, amount := range []float64{0, -500} {
		_, err := a.Adjudicate(context.Background(), matureClaim(amount), healthyPool())

		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve, "amount %v", amount)
		assert.Equal(t, "claim_amount", ve.Field)
	}
}

func TestAdjudicatePassesContextToVerifier(t *testing.T) {
	type markerKey struct{}

	var seen any
	verifier := NewAttachmentBreachVerifier(func(ctx context.Context, _ string) bool {
		seen = ctx.Value(markerKey{})
		return true
	})
	a := NewAdjudicator(
		DefaultThresholds(),
		NewStaticSelector([]string{"arb-1", "arb-2", "arb-3"}),
		verifier,
	)

	req := matureClaim(200)
	req.EvidenceType = domain.EvidencePaymentBreach
	req.EvidenceAttachments = []string{"evidence/clm-1/invoice.pdf"}

	ctx := context.WithValue(context.Background(), markerKey{}, "marker")
	_, err := a.Adjudicate(ctx, req, healthyPool())
	require.NoError(t, err)
	assert.Equal(t, "marker", seen)
}

func TestAdjudicateAutoApprovesSmallLowRiskClaim(t *testing.T) {
	a := newTestAdjudicator(true)
	req := matureClaim(200)

	outcome, err := a.Adjudicate(context.Background(), req, healthyPool())
	require.NoError(t, err)

	assert.Equal(t, domain.ClaimStatusAutoApproved, outcome.Status)
	assert.True(t, outcome.Verdict.Approved)
	assert.InDelta(t, 200, outcome.Verdict.PayoutAmount, 1e-9)
	assert.Empty(t, outcome.Arbitrators)
}

func TestAdjudicateVerifiedPaymentBreach(t *testing.T) {
	a := newTestAdjudicator(true)
	req := matureClaim(200)
	req.EvidenceType = domain.EvidencePaymentBreach
	req.EvidenceAttachments = []string{"evidence/claim-1/invoice.pdf"}

	outcome, err := a.Adjudicate(context.Background(), req, healthyPool())
	require.NoError(t, err)

	assert.Equal(t, domain.ClaimStatusAutoApproved, outcome.Status)
	assert.Equal(t, "Payment breach verified", outcome.Verdict.Reason)
}

func TestAdjudicateUnverifiedBreachFallsThrough(t *testing.T) {
	a := newTestAdjudicator(false)
	req := matureClaim(200)
	req.EvidenceType = domain.EvidencePaymentBreach
	req.EvidenceAttachments = []string{"evidence/claim-1/invoice.pdf"}

	outcome, err := a.Adjudicate(context.Background(), req, healthyPool())
	require.NoError(t, err)

	// Verification failed, but the claim is still small and low-risk.
	assert.Equal(t, domain.ClaimStatusAutoApproved, outcome.Status)
	assert.Equal(t, "Low-risk claim automatically approved", outcome.Verdict.Reason)
}

func TestAdjudicateBreachWithoutAttachmentsSkipsVerification(t *testing.T) {
	a := newTestAdjudicator(true)
	req := matureClaim(200)
	req.EvidenceType = domain.EvidencePaymentBreach

	outcome, err := a.Adjudicate(context.Background(), req, healthyPool())
	require.NoError(t, err)
	assert.Equal(t, "Low-risk claim automatically approved", outcome.Verdict.Reason)
}

func TestAdjudicateInsufficientLiquidity(t *testing.T) {
	a := newTestAdjudicator(true)
	req := matureClaim(200)

	_, err := a.Adjudicate(context.Background(), req, drainedPool())
	assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)
}

func TestAdjudicateLargeAmountGoesToArbitration(t *testing.T) {
	a := newTestAdjudicator(true)
	req := matureClaim(300) // above the 250 auto limit, still low risk

	outcome, err := a.Adjudicate(context.Background(), req, healthyPool())
	require.NoError(t, err)

	assert.Equal(t, domain.ClaimStatusPendingArbitration, outcome.Status)
	assert.False(t, outcome.Verdict.Approved)
	assert.True(t, outcome.Verdict.ArbitrationRequired)
	assert.Equal(t, []string{"arb-1", "arb-2", "arb-3"}, outcome.Arbitrators)
}

func TestAdjudicateHighRiskGoesToArbitration(t *testing.T) {
	a := newTestAdjudicator(true)
	req := domain.ClaimRequest{
		PolicyID:            "pol-1",
		ClaimAmount:         100, // under the auto limit
		EvidenceType:        domain.EvidenceEquipmentDamage,
		PolicyAgeDays:       1,
		PreviousClaimsCount: 4,
		CoverageAmount:      120,
	}

	outcome, err := a.Adjudicate(context.Background(), req, healthyPool())
	require.NoError(t, err)

	assert.Greater(t, outcome.Risk.RiskScore, 70.0)
	assert.Equal(t, domain.ClaimStatusPendingArbitration, outcome.Status)
}

func TestAdjudicateCarriesRiskEvaluation(t *testing.T) {
	a := newTestAdjudicator(true)
	req := matureClaim(6000) // 60% of coverage

	outcome, err := a.Adjudicate(context.Background(), req, healthyPool())
	require.NoError(t, err)

	assert.True(t, outcome.Risk.FlaggedForReview)
	assert.Equal(t, domain.ClaimStatusPendingArbitration, outcome.Status)
}
