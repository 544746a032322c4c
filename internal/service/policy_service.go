package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/pricing"
)

// PolicyRegistration is the intake payload for mirroring a newly issued
// policy.
type PolicyRegistration struct {
	Owner             string
	CoverageAmount    float64
	PeriodDays        int
	JobType           domain.JobType
	Industry          domain.Industry
	ReputationScore   *float64
	ClaimHistoryCount int
}

// PolicyService mirrors issued policies into local storage so the claims
// path can resolve coverage, age, and claim history without a ledger
// round-trip.
type PolicyService struct {
	policies domain.PolicyStore
	calc     *pricing.Calculator
	now      func() time.Time
	logger   *slog.Logger
}

// NewPolicyService creates a PolicyService with all required dependencies.
// A nil now function uses the wall clock.
func NewPolicyService(
	policies domain.PolicyStore,
	calc *pricing.Calculator,
	now func() time.Time,
	logger *slog.Logger,
) *PolicyService {
	if now == nil {
		now = time.Now
	}
	return &PolicyService{
		policies: policies,
		calc:     calc,
		now:      now,
		logger:   logger.With(slog.String("component", "policy_service")),
	}
}

// Register prices and records a new policy. Validation failures surface as
// *domain.ValidationError.
func (s *PolicyService) Register(ctx context.Context, reg PolicyRegistration) (domain.Policy, error) {
	quote := domain.PolicyQuote{
		CoverageAmount:    reg.CoverageAmount,
		PeriodDays:        reg.PeriodDays,
		JobType:           reg.JobType,
		Industry:          reg.Industry,
		ReputationScore:   reg.ReputationScore,
		ClaimHistoryCount: reg.ClaimHistoryCount,
	}
	breakdown, err := s.calc.Price(quote)
	if err != nil {
		return domain.Policy{}, err
	}

	now := s.now().UTC()
	policy := domain.Policy{
		ID:             uuid.New().String(),
		Owner:          reg.Owner,
		CoverageAmount: reg.CoverageAmount,
		Premium:        breakdown.Premium,
		PeriodDays:     reg.PeriodDays,
		JobType:        reg.JobType,
		Industry:       reg.Industry,
		Status:         domain.PolicyStatusActive,
		StartedAt:      now,
		ExpiresAt:      now.AddDate(0, 0, reg.PeriodDays),
	}

	if err := s.policies.Create(ctx, policy); err != nil {
		return domain.Policy{}, fmt.Errorf("policy_service: persist policy: %w", err)
	}

	s.logger.InfoContext(ctx, "policy registered",
		slog.String("policy_id", policy.ID),
		slog.String("owner", policy.Owner),
		slog.Float64("coverage_amount", policy.CoverageAmount),
		slog.Float64("premium", policy.Premium),
	)

	return policy, nil
}

// Get returns a policy, expiring it first when its period has lapsed.
func (s *PolicyService) Get(ctx context.Context, id string) (domain.Policy, error) {
	policy, err := s.policies.GetByID(ctx, id)
	if err != nil {
		return domain.Policy{}, err
	}

	if policy.Status == domain.PolicyStatusActive && s.now().After(policy.ExpiresAt) {
		if err := s.policies.UpdateStatus(ctx, id, domain.PolicyStatusExpired); err != nil {
			s.logger.WarnContext(ctx, "policy_service: expire failed",
				slog.String("policy_id", id),
				slog.String("error", err.Error()),
			)
		} else {
			policy.Status = domain.PolicyStatusExpired
		}
	}

	return policy, nil
}

// ListByOwner returns the owner's policies, newest first.
func (s *PolicyService) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Policy, error) {
	return s.policies.ListByOwner(ctx, owner, opts)
}
