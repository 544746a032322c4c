package claims

import (
	"context"
	"fmt"

	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/pool"
)

// Thresholds holds the adjudication decision thresholds. Amounts are minor
// units of the reference currency.
type Thresholds struct {
	ArbitrationThreshold float64 // risk score above which arbitration is mandatory
	AutoClaimLimit       float64 // largest amount eligible for auto-approval
	AutoProcessThreshold float64 // risk score below which verified breaches auto-approve
}

// DefaultThresholds returns the standard adjudication thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ArbitrationThreshold: 70,
		AutoClaimLimit:       250,
		AutoProcessThreshold: 50,
	}
}

// Outcome describes how a claim left the Submitted state.
type Outcome struct {
	Status      domain.ClaimStatus
	Verdict     domain.ClaimVerdict
	Risk        domain.ClaimRiskEvaluation
	Arbitrators []string // non-empty only when Status is pending_arbitration
}

// Adjudicator runs the claim decision procedure: validity check, risk
// evaluation, breach auto-approval, liquidity gate, then the
// arbitration-or-auto-approve split. It holds no claim state itself; voting
// rounds live in Round and are persisted by the caller.
type Adjudicator struct {
	thresholds Thresholds
	selector   ArbitratorSelector
	verifier   BreachVerifier
}

// NewAdjudicator creates an Adjudicator with the given collaborators.
func NewAdjudicator(thresholds Thresholds, selector ArbitratorSelector, verifier BreachVerifier) *Adjudicator {
	return &Adjudicator{
		thresholds: thresholds,
		selector:   selector,
		verifier:   verifier,
	}
}

// Adjudicate decides a submitted claim against the given pool view.
//
// A non-positive amount is rejected with a *domain.ValidationError. A
// claim exceeding its policy's coverage fails with ErrInvalidClaim. A
// low-risk payment breach that verifies independently is auto-approved
// before the liquidity gate (no pool funds move until the ledger commits
// the payout). A pool that cannot safely fund the claim fails with
// ErrInsufficientLiquidity - the claim is not queued; the caller retries or
// escalates. What remains either goes to arbitration (high risk score or
// amount above the auto limit) or is auto-approved.
func (a *Adjudicator) Adjudicate(ctx context.Context, req domain.ClaimRequest, view pool.View) (Outcome, error) {
	if req.ClaimAmount <= 0 {
		return Outcome{}, &domain.ValidationError{Field: "claim_amount", Reason: "must be positive"}
	}
	if req.ClaimAmount > req.CoverageAmount {
		return Outcome{}, fmt.Errorf("claims: amount %.0f over coverage %.0f: %w",
			req.ClaimAmount, req.CoverageAmount, domain.ErrInvalidClaim)
	}

	risk := EvaluateRisk(req.ClaimAmount, req.PolicyAgeDays, req.PreviousClaimsCount, req.CoverageAmount)

	if req.EvidenceType == domain.EvidencePaymentBreach &&
		risk.RiskScore < a.thresholds.AutoProcessThreshold &&
		len(req.EvidenceAttachments) > 0 {
		verified, err := a.verifier.VerifyPaymentBreach(ctx, req)
		if err != nil {
			return Outcome{}, fmt.Errorf("claims: verify payment breach: %w", err)
		}
		if verified {
			return Outcome{
				Status: domain.ClaimStatusAutoApproved,
				Verdict: domain.ClaimVerdict{
					Approved:     true,
					PayoutAmount: req.ClaimAmount,
					Reason:       "Payment breach verified",
				},
				Risk: risk,
			}, nil
		}
	}

	if !view.CanProcessClaim(req.ClaimAmount) {
		return Outcome{}, fmt.Errorf("claims: pool cannot fund %.0f: %w",
			req.ClaimAmount, domain.ErrInsufficientLiquidity)
	}

	if risk.RiskScore > a.thresholds.ArbitrationThreshold || req.ClaimAmount > a.thresholds.AutoClaimLimit {
		arbitrators, err := a.selector.Select(ctx, req.EvidenceType)
		if err != nil {
			return Outcome{}, fmt.Errorf("claims: select arbitrators: %w", err)
		}
		return Outcome{
			Status: domain.ClaimStatusPendingArbitration,
			Verdict: domain.ClaimVerdict{
				Approved:            false,
				Reason:              "Claim requires arbitration",
				ArbitrationRequired: true,
			},
			Risk:        risk,
			Arbitrators: arbitrators,
		}, nil
	}

	return Outcome{
		Status: domain.ClaimStatusAutoApproved,
		Verdict: domain.ClaimVerdict{
			Approved:     true,
			PayoutAmount: req.ClaimAmount,
			Reason:       "Low-risk claim automatically approved",
		},
		Risk: risk,
	}, nil
}
