package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/freelanceshield/shieldd/internal/cache/redis"
	"github.com/freelanceshield/shieldd/internal/claims"
	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/notify"
)

// ClaimSubmission is the claim intake payload.
type ClaimSubmission struct {
	PolicyID            string
	Amount              float64
	EvidenceType        domain.EvidenceType
	EvidenceDescription string
	EvidenceAttachments []string
}

// ClaimService runs the claim lifecycle: intake and adjudication, the
// arbitration voting round, and finalization. Any path that commits a payout
// holds a per-policy distributed lock and re-reads the ledger before
// committing, so the liquidity check and the payout record cannot straddle
// two different pool states.
type ClaimService struct {
	policies    domain.PolicyStore
	claimStore  domain.ClaimStore
	adjudicator *claims.Adjudicator
	pools       *PoolService
	locks       domain.LockManager
	bus         domain.SignalBus
	notifier    *notify.Notifier

	lockTTL time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewClaimService creates a ClaimService with all required dependencies.
// The bus and notifier may be nil; events and alerts are then skipped. A nil
// now function uses the wall clock.
func NewClaimService(
	policies domain.PolicyStore,
	claimStore domain.ClaimStore,
	adjudicator *claims.Adjudicator,
	pools *PoolService,
	locks domain.LockManager,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	lockTTL time.Duration,
	now func() time.Time,
	logger *slog.Logger,
) *ClaimService {
	if now == nil {
		now = time.Now
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &ClaimService{
		policies:    policies,
		claimStore:  claimStore,
		adjudicator: adjudicator,
		pools:       pools,
		locks:       locks,
		bus:         bus,
		notifier:    notifier,
		lockTTL:     lockTTL,
		now:         now,
		logger:      logger.With(slog.String("component", "claim_service")),
	}
}

// claimEvent is the JSON frame published on the claim channel.
type claimEvent struct {
	Type     string  `json:"type"`
	ClaimID  string  `json:"claim_id"`
	PolicyID string  `json:"policy_id"`
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	Payout   float64 `json:"payout,omitempty"`
}

// Submit runs intake and adjudication for a new claim against an active
// policy. An auto-approved claim is committed only after re-validating pool
// liquidity against a fresh ledger read under the policy's payout lock.
func (s *ClaimService) Submit(ctx context.Context, sub ClaimSubmission) (domain.Claim, error) {
	policy, err := s.policies.GetByID(ctx, sub.PolicyID)
	if err != nil {
		return domain.Claim{}, fmt.Errorf("claim_service: load policy %s: %w", sub.PolicyID, err)
	}
	if policy.Status != domain.PolicyStatusActive {
		return domain.Claim{}, fmt.Errorf("claim_service: policy %s is %s: %w",
			policy.ID, policy.Status, domain.ErrInvalidClaim)
	}

	now := s.now().UTC()
	req := domain.ClaimRequest{
		PolicyID:            policy.ID,
		ClaimAmount:         sub.Amount,
		EvidenceType:        sub.EvidenceType,
		EvidenceDescription: sub.EvidenceDescription,
		EvidenceAttachments: sub.EvidenceAttachments,
		PolicyAgeDays:       policy.AgeDays(now),
		PreviousClaimsCount: policy.ClaimsCount,
		CoverageAmount:      policy.CoverageAmount,
	}

	view, err := s.pools.View(ctx)
	if err != nil {
		return domain.Claim{}, err
	}

	outcome, err := s.adjudicator.Adjudicate(ctx, req, view)
	if err != nil {
		return domain.Claim{}, err
	}

	claim := domain.Claim{
		ID:                  uuid.New().String(),
		PolicyID:            policy.ID,
		Amount:              sub.Amount,
		EvidenceType:        sub.EvidenceType,
		EvidenceDescription: sub.EvidenceDescription,
		EvidenceAttachments: sub.EvidenceAttachments,
		RiskScore:           outcome.Risk.RiskScore,
		FlaggedForReview:    outcome.Risk.FlaggedForReview,
		Status:              outcome.Status,
		PayoutAmount:        outcome.Verdict.PayoutAmount,
		Reason:              outcome.Verdict.Reason,
		Arbitrators:         outcome.Arbitrators,
		SubmittedAt:         now,
	}

	if outcome.Status == domain.ClaimStatusAutoApproved {
		if err := s.commitPayout(ctx, policy.ID, claim.Amount); err != nil {
			return domain.Claim{}, err
		}
		finalized := now
		claim.FinalizedAt = &finalized
	}

	if err := s.claimStore.Create(ctx, claim); err != nil {
		return domain.Claim{}, fmt.Errorf("claim_service: persist claim: %w", err)
	}
	if err := s.policies.IncrementClaims(ctx, policy.ID); err != nil {
		s.logger.WarnContext(ctx, "claim_service: increment claims failed",
			slog.String("policy_id", policy.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "claim adjudicated",
		slog.String("claim_id", claim.ID),
		slog.String("policy_id", claim.PolicyID),
		slog.String("status", string(claim.Status)),
		slog.Float64("amount", claim.Amount),
		slog.Float64("risk_score", claim.RiskScore),
	)

	switch claim.Status {
	case domain.ClaimStatusAutoApproved:
		s.alert(ctx, notify.EventClaimApproved, "Claim auto-approved",
			fmt.Sprintf("Claim %s on policy %s approved for %.2f: %s",
				claim.ID, claim.PolicyID, claim.PayoutAmount, claim.Reason))
		s.publish(ctx, claimEvent{
			Type: "claim_approved", ClaimID: claim.ID, PolicyID: claim.PolicyID,
			Status: string(claim.Status), Amount: claim.Amount, Payout: claim.PayoutAmount,
		})
	case domain.ClaimStatusPendingArbitration:
		s.alert(ctx, notify.EventArbitrationOpened, "Claim sent to arbitration",
			fmt.Sprintf("Claim %s on policy %s (amount %.2f, risk %.1f) awaits %d arbitrators.",
				claim.ID, claim.PolicyID, claim.Amount, claim.RiskScore, len(claim.Arbitrators)))
		s.publish(ctx, claimEvent{
			Type: "arbitration_opened", ClaimID: claim.ID, PolicyID: claim.PolicyID,
			Status: string(claim.Status), Amount: claim.Amount,
		})
	}

	return claim, nil
}

// Vote records one arbitrator's vote on a claim in arbitration.
func (s *ClaimService) Vote(ctx context.Context, claimID, arbitratorID string, approved bool, comment string) (domain.ArbitrationVote, error) {
	claim, err := s.claimStore.GetByID(ctx, claimID)
	if err != nil {
		return domain.ArbitrationVote{}, fmt.Errorf("claim_service: load claim %s: %w", claimID, err)
	}
	if claim.Status.Terminal() {
		return domain.ArbitrationVote{}, domain.ErrClaimFinalized
	}
	if claim.Status != domain.ClaimStatusPendingArbitration {
		return domain.ArbitrationVote{}, domain.ErrArbitrationNotRequired
	}

	round := claims.ResumeRound(claim)
	vote, err := round.SubmitVote(arbitratorID, approved, comment, s.now().UTC())
	if err != nil {
		return domain.ArbitrationVote{}, err
	}

	if err := s.claimStore.AppendVote(ctx, claimID, vote); err != nil {
		return domain.ArbitrationVote{}, err
	}

	s.logger.InfoContext(ctx, "arbitration vote recorded",
		slog.String("claim_id", claimID),
		slog.String("arbitrator_id", arbitratorID),
		slog.Bool("approved", approved),
		slog.Int("votes", round.VoteCount()),
	)

	s.publish(ctx, claimEvent{
		Type: "vote_cast", ClaimID: claimID, PolicyID: claim.PolicyID,
		Status: string(claim.Status), Amount: claim.Amount,
	})

	return vote, nil
}

// Finalize closes a claim's arbitration round once quorum is reached. An
// approved verdict is committed only after re-validating pool liquidity
// under the policy's payout lock; the round stays open if the pool cannot
// fund the payout.
func (s *ClaimService) Finalize(ctx context.Context, claimID string) (domain.Claim, error) {
	claim, err := s.claimStore.GetByID(ctx, claimID)
	if err != nil {
		return domain.Claim{}, fmt.Errorf("claim_service: load claim %s: %w", claimID, err)
	}
	if claim.Status.Terminal() {
		return domain.Claim{}, domain.ErrClaimFinalized
	}
	if claim.Status != domain.ClaimStatusPendingArbitration {
		return domain.Claim{}, domain.ErrArbitrationNotRequired
	}

	round := claims.ResumeRound(claim)
	verdict, err := round.Finalize()
	if err != nil {
		return domain.Claim{}, err
	}

	status := domain.ClaimStatusRejected
	if verdict.Approved {
		if err := s.commitPayout(ctx, claim.PolicyID, claim.Amount); err != nil {
			return domain.Claim{}, err
		}
		status = domain.ClaimStatusApproved
	}

	if err := s.claimStore.Finalize(ctx, claimID, status, verdict.PayoutAmount, verdict.Reason); err != nil {
		return domain.Claim{}, err
	}

	claim.Status = status
	claim.PayoutAmount = verdict.PayoutAmount
	claim.Reason = verdict.Reason
	claim.Votes = verdict.Votes
	finalized := s.now().UTC()
	claim.FinalizedAt = &finalized

	s.logger.InfoContext(ctx, "arbitration finalized",
		slog.String("claim_id", claimID),
		slog.String("status", string(status)),
		slog.Float64("payout", verdict.PayoutAmount),
	)

	if verdict.Approved {
		s.alert(ctx, notify.EventClaimApproved, "Claim approved by arbitration",
			fmt.Sprintf("Claim %s on policy %s approved for %.2f.", claimID, claim.PolicyID, verdict.PayoutAmount))
	} else {
		s.alert(ctx, notify.EventClaimRejected, "Claim rejected by arbitration",
			fmt.Sprintf("Claim %s on policy %s rejected: %s", claimID, claim.PolicyID, verdict.Reason))
	}
	s.publish(ctx, claimEvent{
		Type: "claim_finalized", ClaimID: claimID, PolicyID: claim.PolicyID,
		Status: string(status), Amount: claim.Amount, Payout: verdict.PayoutAmount,
	})

	return claim, nil
}

// Get returns a claim with its votes.
func (s *ClaimService) Get(ctx context.Context, claimID string) (domain.Claim, error) {
	return s.claimStore.GetByID(ctx, claimID)
}

// ListByPolicy returns a policy's claims, newest first.
func (s *ClaimService) ListByPolicy(ctx context.Context, policyID string, opts domain.ListOpts) ([]domain.Claim, error) {
	return s.claimStore.ListByPolicy(ctx, policyID, opts)
}

// ListByStatus returns claims in a given status, newest first.
func (s *ClaimService) ListByStatus(ctx context.Context, status domain.ClaimStatus, opts domain.ListOpts) ([]domain.Claim, error) {
	return s.claimStore.ListByStatus(ctx, status, opts)
}

// commitPayout re-validates pool liquidity against a fresh ledger read while
// holding the policy's payout lock. The earlier adjudication check ran on a
// possibly cached snapshot; the pool may have drained in between.
func (s *ClaimService) commitPayout(ctx context.Context, policyID string, amount float64) error {
	unlock, err := s.locks.Acquire(ctx, "payout:policy:"+policyID, s.lockTTL)
	if err != nil {
		return fmt.Errorf("claim_service: payout lock for policy %s: %w", policyID, err)
	}
	defer unlock()

	fresh, err := s.pools.FreshView(ctx)
	if err != nil {
		return err
	}
	if !fresh.CanProcessClaim(amount) {
		return fmt.Errorf("claim_service: pool cannot fund %.0f at commit: %w",
			amount, domain.ErrInsufficientLiquidity)
	}
	return nil
}

func (s *ClaimService) alert(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "claim_service: notify failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ClaimService) publish(ctx context.Context, ev claimEvent) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.WarnContext(ctx, "claim_service: marshal event failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, redis.ChannelClaims, payload); err != nil {
		s.logger.WarnContext(ctx, "claim_service: publish event failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}
