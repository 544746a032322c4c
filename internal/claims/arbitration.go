package claims

import (
	"sort"
	"time"

	"github.com/freelanceshield/shieldd/internal/domain"
)

// quorum is the minimum number of votes before an arbitration round may
// finalize.
const quorum = 3

// Round is an open arbitration voting round for one claim. Votes are keyed
// by arbitrator ID, so a duplicate vote from the same arbitrator is
// structurally impossible to record twice.
type Round struct {
	claimID     string
	claimAmount float64
	arbitrators map[string]bool
	votes       map[string]domain.ArbitrationVote
	finalized   bool
}

// NewRound opens a voting round for the given claim among the given
// arbitrator set.
func NewRound(claimID string, claimAmount float64, arbitrators []string) *Round {
	set := make(map[string]bool, len(arbitrators))
	for _, a := range arbitrators {
		set[a] = true
	}
	return &Round{
		claimID:     claimID,
		claimAmount: claimAmount,
		arbitrators: set,
		votes:       make(map[string]domain.ArbitrationVote, len(arbitrators)),
	}
}

// ResumeRound rebuilds a round from persisted state so voting can continue
// across process restarts.
func ResumeRound(c domain.Claim) *Round {
	r := NewRound(c.ID, c.Amount, c.Arbitrators)
	for _, v := range c.Votes {
		r.votes[v.ArbitratorID] = v
	}
	r.finalized = c.Status.Terminal()
	return r
}

// ClaimID returns the claim this round adjudicates.
func (r *Round) ClaimID() string { return r.claimID }

// VoteCount returns the number of votes cast so far.
func (r *Round) VoteCount() int { return len(r.votes) }

// SubmitVote records one arbitrator's vote. It returns ErrUnauthorized for
// arbitrators outside the selected set, ErrDuplicateVote if the arbitrator
// has already voted, and ErrClaimFinalized once the round is closed.
func (r *Round) SubmitVote(arbitratorID string, approved bool, comment string, ts time.Time) (domain.ArbitrationVote, error) {
	if r.finalized {
		return domain.ArbitrationVote{}, domain.ErrClaimFinalized
	}
	if !r.arbitrators[arbitratorID] {
		return domain.ArbitrationVote{}, domain.ErrUnauthorized
	}
	if _, voted := r.votes[arbitratorID]; voted {
		return domain.ArbitrationVote{}, domain.ErrDuplicateVote
	}

	vote := domain.ArbitrationVote{
		ArbitratorID: arbitratorID,
		Approved:     approved,
		Comment:      comment,
		Timestamp:    ts,
	}
	r.votes[arbitratorID] = vote
	return vote, nil
}

// Finalize closes the round and returns the verdict. It fails with
// ErrArbitrationIncomplete until at least three votes are in. The claim is
// approved only when approvals strictly outnumber rejections; a tie rejects.
func (r *Round) Finalize() (domain.ClaimVerdict, error) {
	if r.finalized {
		return domain.ClaimVerdict{}, domain.ErrClaimFinalized
	}
	if len(r.votes) < quorum {
		return domain.ClaimVerdict{}, domain.ErrArbitrationIncomplete
	}

	votes := r.Votes()
	approvals := 0
	for _, v := range votes {
		if v.Approved {
			approvals++
		}
	}
	approved := approvals > len(votes)-approvals

	verdict := domain.ClaimVerdict{
		Approved:            approved,
		ArbitrationRequired: false,
		Votes:               votes,
	}
	if approved {
		verdict.PayoutAmount = r.claimAmount
		verdict.Reason = "Claim approved by arbitration"
	} else {
		verdict.Reason = "Claim rejected by arbitration"
	}

	r.finalized = true
	return verdict, nil
}

// Votes returns the cast votes ordered by timestamp, then arbitrator ID for
// a stable order among same-instant votes.
func (r *Round) Votes() []domain.ArbitrationVote {
	votes := make([]domain.ArbitrationVote, 0, len(r.votes))
	for _, v := range r.votes {
		votes = append(votes, v)
	}
	sort.Slice(votes, func(i, j int) bool {
		if !votes[i].Timestamp.Equal(votes[j].Timestamp) {
			return votes[i].Timestamp.Before(votes[j].Timestamp)
		}
		return votes[i].ArbitratorID < votes[j].ArbitratorID
	})
	return votes
}
