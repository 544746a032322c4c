package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freelanceshield/shieldd/internal/claims"
	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/pool"
)

var claimTestNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// ---------------------------------------------------------------------------
// In-memory fakes
// ---------------------------------------------------------------------------

type fakePolicyStore struct {
	policies    map[string]domain.Policy
	incremented []string
}

func newFakePolicyStore(ps ...domain.Policy) *fakePolicyStore {
	s := &fakePolicyStore{policies: make(map[string]domain.Policy)}
	for _, p := range ps {
		s.policies[p.ID] = p
	}
	return s
}

func (s *fakePolicyStore) Create(_ context.Context, p domain.Policy) error {
	s.policies[p.ID] = p
	return nil
}

func (s *fakePolicyStore) GetByID(_ context.Context, id string) (domain.Policy, error) {
	p, ok := s.policies[id]
	if !ok {
		return domain.Policy{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakePolicyStore) ListByOwner(_ context.Context, owner string, _ domain.ListOpts) ([]domain.Policy, error) {
	var out []domain.Policy
	for _, p := range s.policies {
		if p.Owner == owner {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePolicyStore) IncrementClaims(_ context.Context, id string) error {
	p, ok := s.policies[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ClaimsCount++
	s.policies[id] = p
	s.incremented = append(s.incremented, id)
	return nil
}

func (s *fakePolicyStore) UpdateStatus(_ context.Context, id string, status domain.PolicyStatus) error {
	p, ok := s.policies[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	s.policies[id] = p
	return nil
}

type fakeClaimStore struct {
	claims map[string]domain.Claim
}

func newFakeClaimStore(cs ...domain.Claim) *fakeClaimStore {
	s := &fakeClaimStore{claims: make(map[string]domain.Claim)}
	for _, c := range cs {
		s.claims[c.ID] = c
	}
	return s
}

func (s *fakeClaimStore) Create(_ context.Context, c domain.Claim) error {
	if _, ok := s.claims[c.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.claims[c.ID] = c
	return nil
}

func (s *fakeClaimStore) GetByID(_ context.Context, id string) (domain.Claim, error) {
	c, ok := s.claims[id]
	if !ok {
		return domain.Claim{}, domain.ErrNotFound
	}
	c.Votes = append([]domain.ArbitrationVote(nil), c.Votes...)
	return c, nil
}

func (s *fakeClaimStore) ListByPolicy(_ context.Context, policyID string, _ domain.ListOpts) ([]domain.Claim, error) {
	var out []domain.Claim
	for _, c := range s.claims {
		if c.PolicyID == policyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeClaimStore) ListByStatus(_ context.Context, status domain.ClaimStatus, _ domain.ListOpts) ([]domain.Claim, error) {
	var out []domain.Claim
	for _, c := range s.claims {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeClaimStore) AppendVote(_ context.Context, claimID string, vote domain.ArbitrationVote) error {
	c, ok := s.claims[claimID]
	if !ok {
		return domain.ErrNotFound
	}
	c.Votes = append(c.Votes, vote)
	s.claims[claimID] = c
	return nil
}

func (s *fakeClaimStore) Finalize(_ context.Context, claimID string, status domain.ClaimStatus, payout float64, reason string) error {
	c, ok := s.claims[claimID]
	if !ok {
		return domain.ErrNotFound
	}
	c.Status = status
	c.PayoutAmount = payout
	c.Reason = reason
	s.claims[claimID] = c
	return nil
}

// fakeLedger serves each configured snapshot once, then repeats the last one.
type fakeLedger struct {
	snapshots []domain.RiskPoolMetrics
	calls     int
}

func (l *fakeLedger) PoolMetrics(_ context.Context) (domain.RiskPoolMetrics, error) {
	idx := l.calls
	if idx >= len(l.snapshots) {
		idx = len(l.snapshots) - 1
	}
	l.calls++
	return l.snapshots[idx], nil
}

// missMetricsCache never holds a snapshot, so every view reads the ledger.
type missMetricsCache struct{}

func (missMetricsCache) Set(context.Context, domain.RiskPoolMetrics, time.Duration) error {
	return nil
}

func (missMetricsCache) Get(context.Context) (domain.RiskPoolMetrics, error) {
	return domain.RiskPoolMetrics{}, domain.ErrNotFound
}

type fakeLocks struct {
	acquired []string
	released int
	denyKey  string
}

func (l *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	if key == l.denyKey {
		return nil, domain.ErrLockHeld
	}
	l.acquired = append(l.acquired, key)
	return func() { l.released++ }, nil
}

// Interface conformance for the fakes.
var (
	_ domain.PolicyStore  = (*fakePolicyStore)(nil)
	_ domain.ClaimStore   = (*fakeClaimStore)(nil)
	_ domain.LedgerReader = (*fakeLedger)(nil)
	_ domain.MetricsCache = missMetricsCache{}
	_ domain.LockManager  = (*fakeLocks)(nil)
)

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

func healthyMetrics() domain.RiskPoolMetrics {
	return domain.RiskPoolMetrics{
		TotalStaked:    100_000,
		TotalCoverage:  100_000,
		ActiveStakers:  40,
		ActivePolicies: 20,
		FetchedAt:      claimTestNow,
	}
}

func drainedMetrics() domain.RiskPoolMetrics {
	m := healthyMetrics()
	m.TotalStaked = 100
	return m
}

func activePolicy() domain.Policy {
	return domain.Policy{
		ID:             "pol-1",
		Owner:          "acct-1",
		CoverageAmount: 10_000,
		Premium:        120,
		PeriodDays:     365,
		JobType:        domain.JobSoftwareDevelopment,
		Industry:       domain.IndustryTechnology,
		Status:         domain.PolicyStatusActive,
		StartedAt:      claimTestNow.AddDate(0, 0, -180),
		ExpiresAt:      claimTestNow.AddDate(0, 0, 185),
	}
}

type claimHarness struct {
	svc      *ClaimService
	policies *fakePolicyStore
	claimStore *fakeClaimStore
	ledger   *fakeLedger
	locks    *fakeLocks
}

func newClaimHarness(t *testing.T, snapshots ...domain.RiskPoolMetrics) *claimHarness {
	t.Helper()
	if len(snapshots) == 0 {
		snapshots = []domain.RiskPoolMetrics{healthyMetrics()}
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ledger := &fakeLedger{snapshots: snapshots}
	pools := NewPoolService(ledger, missMetricsCache{}, nil, nil, PoolServiceConfig{
		Params:   pool.DefaultParams(),
		CacheTTL: time.Minute,
	}, logger)

	adjudicator := claims.NewAdjudicator(
		claims.DefaultThresholds(),
		claims.NewStaticSelector([]string{"arb-1", "arb-2", "arb-3"}),
		claims.NewAttachmentBreachVerifier(func(context.Context, string) bool { return true }),
	)

	h := &claimHarness{
		policies: newFakePolicyStore(activePolicy()),
		claimStore: newFakeClaimStore(),
		ledger:   ledger,
		locks:    &fakeLocks{},
	}
	h.svc = NewClaimService(
		h.policies, h.claimStore, adjudicator, pools, h.locks, nil, nil,
		time.Second, func() time.Time { return claimTestNow }, logger,
	)
	return h
}

func pendingClaim(votes ...domain.ArbitrationVote) domain.Claim {
	return domain.Claim{
		ID:           "clm-1",
		PolicyID:     "pol-1",
		Amount:       500,
		EvidenceType: domain.EvidenceContractViolation,
		Status:       domain.ClaimStatusPendingArbitration,
		Arbitrators:  []string{"arb-1", "arb-2", "arb-3"},
		Votes:        votes,
		SubmittedAt:  claimTestNow.Add(-time.Hour),
	}
}

func vote(arbitrator string, approved bool, offset time.Duration) domain.ArbitrationVote {
	return domain.ArbitrationVote{
		ArbitratorID: arbitrator,
		Approved:     approved,
		Timestamp:    claimTestNow.Add(-time.Hour + offset),
	}
}

// ---------------------------------------------------------------------------
// Submit
// ---------------------------------------------------------------------------

func TestSubmitAutoApprovesLowRiskClaim(t *testing.T) {
	h := newClaimHarness(t)

	claim, err := h.svc.Submit(context.Background(), ClaimSubmission{
		PolicyID:            "pol-1",
		Amount:              200,
		EvidenceType:        domain.EvidenceContractViolation,
		EvidenceDescription: "deliverables rejected without review",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ClaimStatusAutoApproved, claim.Status)
	assert.Equal(t, 200.0, claim.PayoutAmount)
	require.NotNil(t, claim.FinalizedAt)
	assert.Equal(t, claimTestNow, *claim.FinalizedAt)

	// Payout committed under the policy lock, which must be released again.
	assert.Equal(t, []string{"payout:policy:pol-1"}, h.locks.acquired)
	assert.Equal(t, 1, h.locks.released)

	// Adjudication view plus the fresh re-read at commit.
	assert.Equal(t, 2, h.ledger.calls)

	stored, err := h.claimStore.GetByID(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusAutoApproved, stored.Status)
	assert.Equal(t, []string{"pol-1"}, h.policies.incremented)
}

func TestSubmitRejectsInactivePolicy(t *testing.T) {
	h := newClaimHarness(t)
	p := activePolicy()
	p.Status = domain.PolicyStatusExpired
	h.policies.policies[p.ID] = p

	_, err := h.svc.Submit(context.Background(), ClaimSubmission{
		PolicyID: "pol-1",
		Amount:   200,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidClaim)
	assert.Empty(t, h.claimStore.claims)
	assert.Empty(t, h.locks.acquired)
}

func TestSubmitUnknownPolicy(t *testing.T) {
	h := newClaimHarness(t)

	_, err := h.svc.Submit(context.Background(), ClaimSubmission{
		PolicyID: "no-such-policy",
		Amount:   200,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmitRoutesLargeClaimToArbitration(t *testing.T) {
	h := newClaimHarness(t)

	claim, err := h.svc.Submit(context.Background(), ClaimSubmission{
		PolicyID:     "pol-1",
		Amount:       500,
		EvidenceType: domain.EvidenceContractViolation,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ClaimStatusPendingArbitration, claim.Status)
	assert.Equal(t, []string{"arb-1", "arb-2", "arb-3"}, claim.Arbitrators)
	assert.Nil(t, claim.FinalizedAt)
	assert.Zero(t, claim.PayoutAmount)

	// No payout, so no lock and no ledger re-read.
	assert.Empty(t, h.locks.acquired)
	assert.Equal(t, 1, h.ledger.calls)
	assert.Equal(t, []string{"pol-1"}, h.policies.incremented)
}

func TestSubmitRecheckCatchesDrainedPool(t *testing.T) {
	// The pool is healthy when the claim is adjudicated but drained by the
	// time the payout is committed. The fresh read under the lock must catch
	// this and the claim must not be persisted as approved.
	h := newClaimHarness(t, healthyMetrics(), drainedMetrics())

	_, err := h.svc.Submit(context.Background(), ClaimSubmission{
		PolicyID:     "pol-1",
		Amount:       200,
		EvidenceType: domain.EvidenceContractViolation,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)

	assert.Empty(t, h.claimStore.claims)
	assert.Equal(t, []string{"payout:policy:pol-1"}, h.locks.acquired)
	assert.Equal(t, 1, h.locks.released)
	assert.Equal(t, 2, h.ledger.calls)
}

func TestSubmitFailsWhenPayoutLockHeld(t *testing.T) {
	h := newClaimHarness(t)
	h.locks.denyKey = "payout:policy:pol-1"

	_, err := h.svc.Submit(context.Background(), ClaimSubmission{
		PolicyID:     "pol-1",
		Amount:       200,
		EvidenceType: domain.EvidenceContractViolation,
	})
	assert.ErrorIs(t, err, domain.ErrLockHeld)
	assert.Empty(t, h.claimStore.claims)
}

func TestSubmitRejectsNonPositiveAmount(t *testing.T) {
	h := newClaimHarness(t)

	_, err := h.svc.Submit(context.Background(), ClaimSubmission{
		PolicyID:     "pol-1",
		Amount:       -500,
		EvidenceType: domain.EvidenceContractViolation,
	})

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "claim_amount", ve.Field)
	assert.Empty(t, h.claimStore.claims)
	assert.Empty(t, h.locks.acquired)
}

func TestSubmitOverCoverageClaim(t *testing.T) {
	h := newClaimHarness(t)

	_, err := h.svc.Submit(context.Background(), ClaimSubmission{
		PolicyID: "pol-1",
		Amount:   10_001,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidClaim)
	assert.Empty(t, h.claimStore.claims)
}

// ---------------------------------------------------------------------------
// Vote
// ---------------------------------------------------------------------------

func TestVoteRecordsAndPersists(t *testing.T) {
	h := newClaimHarness(t)
	require.NoError(t, h.claimStore.Create(context.Background(), pendingClaim()))

	v, err := h.svc.Vote(context.Background(), "clm-1", "arb-1", true, "escrow shows non-payment")
	require.NoError(t, err)
	assert.Equal(t, "arb-1", v.ArbitratorID)
	assert.True(t, v.Approved)
	assert.Equal(t, claimTestNow, v.Timestamp)

	stored, err := h.claimStore.GetByID(context.Background(), "clm-1")
	require.NoError(t, err)
	require.Len(t, stored.Votes, 1)
	assert.Equal(t, "arb-1", stored.Votes[0].ArbitratorID)
}

func TestVoteRejectsDuplicate(t *testing.T) {
	h := newClaimHarness(t)
	require.NoError(t, h.claimStore.Create(context.Background(),
		pendingClaim(vote("arb-1", true, 0))))

	_, err := h.svc.Vote(context.Background(), "clm-1", "arb-1", false, "")
	assert.ErrorIs(t, err, domain.ErrDuplicateVote)

	stored, _ := h.claimStore.GetByID(context.Background(), "clm-1")
	assert.Len(t, stored.Votes, 1)
}

func TestVoteRejectsOutsider(t *testing.T) {
	h := newClaimHarness(t)
	require.NoError(t, h.claimStore.Create(context.Background(), pendingClaim()))

	_, err := h.svc.Vote(context.Background(), "clm-1", "arb-99", true, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVoteOnTerminalClaim(t *testing.T) {
	h := newClaimHarness(t)
	c := pendingClaim()
	c.Status = domain.ClaimStatusRejected
	require.NoError(t, h.claimStore.Create(context.Background(), c))

	_, err := h.svc.Vote(context.Background(), "clm-1", "arb-1", true, "")
	assert.ErrorIs(t, err, domain.ErrClaimFinalized)
}

func TestVoteOnClaimNotInArbitration(t *testing.T) {
	h := newClaimHarness(t)
	c := pendingClaim()
	c.Status = domain.ClaimStatusSubmitted
	require.NoError(t, h.claimStore.Create(context.Background(), c))

	_, err := h.svc.Vote(context.Background(), "clm-1", "arb-1", true, "")
	assert.ErrorIs(t, err, domain.ErrArbitrationNotRequired)
}

// ---------------------------------------------------------------------------
// Finalize
// ---------------------------------------------------------------------------

func TestFinalizeMajorityApproves(t *testing.T) {
	h := newClaimHarness(t)
	require.NoError(t, h.claimStore.Create(context.Background(), pendingClaim(
		vote("arb-1", true, 0),
		vote("arb-2", true, time.Minute),
		vote("arb-3", false, 2*time.Minute),
	)))

	claim, err := h.svc.Finalize(context.Background(), "clm-1")
	require.NoError(t, err)

	assert.Equal(t, domain.ClaimStatusApproved, claim.Status)
	assert.Equal(t, 500.0, claim.PayoutAmount)
	require.NotNil(t, claim.FinalizedAt)
	assert.Len(t, claim.Votes, 3)

	// Approved verdicts commit under the payout lock with a fresh ledger read.
	assert.Equal(t, []string{"payout:policy:pol-1"}, h.locks.acquired)
	assert.Equal(t, 1, h.locks.released)

	stored, _ := h.claimStore.GetByID(context.Background(), "clm-1")
	assert.Equal(t, domain.ClaimStatusApproved, stored.Status)
	assert.Equal(t, 500.0, stored.PayoutAmount)
}

func TestFinalizeTieRejects(t *testing.T) {
	h := newClaimHarness(t)
	c := pendingClaim(
		vote("arb-1", true, 0),
		vote("arb-2", true, time.Minute),
		vote("arb-3", false, 2*time.Minute),
		vote("arb-4", false, 3*time.Minute),
	)
	c.Arbitrators = append(c.Arbitrators, "arb-4")
	require.NoError(t, h.claimStore.Create(context.Background(), c))

	claim, err := h.svc.Finalize(context.Background(), "clm-1")
	require.NoError(t, err)

	assert.Equal(t, domain.ClaimStatusRejected, claim.Status)
	assert.Zero(t, claim.PayoutAmount)

	// Rejected claims never touch the pool.
	assert.Empty(t, h.locks.acquired)
	assert.Zero(t, h.ledger.calls)
}

func TestFinalizeNeedsQuorum(t *testing.T) {
	h := newClaimHarness(t)
	require.NoError(t, h.claimStore.Create(context.Background(), pendingClaim(
		vote("arb-1", true, 0),
		vote("arb-2", true, time.Minute),
	)))

	_, err := h.svc.Finalize(context.Background(), "clm-1")
	assert.ErrorIs(t, err, domain.ErrArbitrationIncomplete)

	stored, _ := h.claimStore.GetByID(context.Background(), "clm-1")
	assert.Equal(t, domain.ClaimStatusPendingArbitration, stored.Status)
}

func TestFinalizeApprovedButPoolDrained(t *testing.T) {
	h := newClaimHarness(t, drainedMetrics())
	require.NoError(t, h.claimStore.Create(context.Background(), pendingClaim(
		vote("arb-1", true, 0),
		vote("arb-2", true, time.Minute),
		vote("arb-3", true, 2*time.Minute),
	)))

	_, err := h.svc.Finalize(context.Background(), "clm-1")
	assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)

	// The round stays open so finalization can be retried later.
	stored, _ := h.claimStore.GetByID(context.Background(), "clm-1")
	assert.Equal(t, domain.ClaimStatusPendingArbitration, stored.Status)
	assert.Len(t, stored.Votes, 3)
}

func TestFinalizeTerminalClaim(t *testing.T) {
	h := newClaimHarness(t)
	c := pendingClaim()
	c.Status = domain.ClaimStatusApproved
	require.NoError(t, h.claimStore.Create(context.Background(), c))

	_, err := h.svc.Finalize(context.Background(), "clm-1")
	assert.ErrorIs(t, err, domain.ErrClaimFinalized)
}

func TestFinalizeUnknownClaim(t *testing.T) {
	h := newClaimHarness(t)

	_, err := h.svc.Finalize(context.Background(), "no-such-claim")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
