package claims

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freelanceshield/shieldd/internal/domain"
)

var (
	panel  = []string{"arb-1", "arb-2", "arb-3"}
	voteTs = time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
)

func TestRoundMajorityApproves(t *testing.T) {
	r := NewRound("claim-1", 500, panel)

	_, err := r.SubmitVote("arb-1", true, "evidence checks out", voteTs)
	require.NoError(t, err)
	_, err = r.SubmitVote("arb-2", true, "", voteTs.Add(time.Minute))
	require.NoError(t, err)
	_, err = r.SubmitVote("arb-3", false, "unconvinced", voteTs.Add(2*time.Minute))
	require.NoError(t, err)

	verdict, err := r.Finalize()
	require.NoError(t, err)

	assert.True(t, verdict.Approved)
	assert.InDelta(t, 500, verdict.PayoutAmount, 1e-9)
	assert.Len(t, verdict.Votes, 3)
	assert.Equal(t, "arb-1", verdict.Votes[0].ArbitratorID)
	assert.Equal(t, "arb-3", verdict.Votes[2].ArbitratorID)
}

func TestRoundMajorityRejects(t *testing.T) {
	r := NewRound("claim-1", 500, panel)

	mustVote(t, r, "arb-1", false)
	mustVote(t, r, "arb-2", false)
	mustVote(t, r, "arb-3", true)

	verdict, err := r.Finalize()
	require.NoError(t, err)

	assert.False(t, verdict.Approved)
	assert.Zero(t, verdict.PayoutAmount)
}

func TestRoundTieRejects(t *testing.T) {
	four := []string{"arb-1", "arb-2", "arb-3", "arb-4"}
	r := NewRound("claim-1", 500, four)

	mustVote(t, r, "arb-1", true)
	mustVote(t, r, "arb-2", true)
	mustVote(t, r, "arb-3", false)
	mustVote(t, r, "arb-4", false)

	verdict, err := r.Finalize()
	require.NoError(t, err)
	assert.False(t, verdict.Approved)
}

func TestRoundFinalizeNeedsQuorum(t *testing.T) {
	r := NewRound("claim-1", 500, panel)

	mustVote(t, r, "arb-1", true)
	mustVote(t, r, "arb-2", true)

	_, err := r.Finalize()
	assert.ErrorIs(t, err, domain.ErrArbitrationIncomplete)

	// The round stays open; a third vote lets it close.
	mustVote(t, r, "arb-3", true)
	_, err = r.Finalize()
	assert.NoError(t, err)
}

func TestRoundRejectsDuplicateVote(t *testing.T) {
	r := NewRound("claim-1", 500, panel)

	mustVote(t, r, "arb-1", true)
	_, err := r.SubmitVote("arb-1", false, "changed my mind", voteTs)
	assert.ErrorIs(t, err, domain.ErrDuplicateVote)
	assert.Equal(t, 1, r.VoteCount())
}

func TestRoundRejectsOutsider(t *testing.T) {
	r := NewRound("claim-1", 500, panel)

	_, err := r.SubmitVote("stranger", true, "", voteTs)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRoundClosedAfterFinalize(t *testing.T) {
	r := NewRound("claim-1", 500, panel)
	mustVote(t, r, "arb-1", true)
	mustVote(t, r, "arb-2", true)
	mustVote(t, r, "arb-3", true)

	_, err := r.Finalize()
	require.NoError(t, err)

	_, err = r.SubmitVote("arb-3", false, "", voteTs)
	assert.ErrorIs(t, err, domain.ErrClaimFinalized)
	_, err = r.Finalize()
	assert.ErrorIs(t, err, domain.ErrClaimFinalized)
}

func TestResumeRoundContinuesVoting(t *testing.T) {
	claim := domain.Claim{
		ID:          "claim-1",
		Amount:      500,
		Status:      domain.ClaimStatusPendingArbitration,
		Arbitrators: panel,
		Votes: []domain.ArbitrationVote{
			{ArbitratorID: "arb-1", Approved: true, Timestamp: voteTs},
			{ArbitratorID: "arb-2", Approved: true, Timestamp: voteTs.Add(time.Minute)},
		},
	}

	r := ResumeRound(claim)
	assert.Equal(t, 2, r.VoteCount())

	_, err := r.SubmitVote("arb-1", true, "", voteTs)
	assert.ErrorIs(t, err, domain.ErrDuplicateVote)

	mustVote(t, r, "arb-3", false)
	verdict, err := r.Finalize()
	require.NoError(t, err)
	assert.True(t, verdict.Approved)
}

func TestResumeRoundTerminalClaimIsClosed(t *testing.T) {
	claim := domain.Claim{
		ID:          "claim-1",
		Amount:      500,
		Status:      domain.ClaimStatusApproved,
		Arbitrators: panel,
	}

	r := ResumeRound(claim)
	_, err := r.SubmitVote("arb-1", true, "", voteTs)
	assert.ErrorIs(t, err, domain.ErrClaimFinalized)
}

func mustVote(t *testing.T, r *Round, arbitrator string, approved bool) {
	t.Helper()
	_, err := r.SubmitVote(arbitrator, approved, "", voteTs.Add(time.Duration(r.VoteCount())*time.Minute))
	require.NoError(t, err)
}
