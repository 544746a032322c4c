package domain

import "time"

// EvidenceType categorizes the evidence backing a claim.
type EvidenceType string

const (
	EvidencePaymentBreach     EvidenceType = "PAYMENT_BREACH"
	EvidenceContractViolation EvidenceType = "CONTRACT_VIOLATION"
	EvidenceEquipmentDamage   EvidenceType = "EQUIPMENT_DAMAGE"
)

// ClaimStatus is the lifecycle state of a claim.
//
//	submitted -> auto_approved                    (terminal, immediate payout)
//	submitted -> pending_arbitration -> approved  (terminal)
//	submitted -> pending_arbitration -> rejected  (terminal)
type ClaimStatus string

const (
	ClaimStatusSubmitted          ClaimStatus = "submitted"
	ClaimStatusAutoApproved       ClaimStatus = "auto_approved"
	ClaimStatusPendingArbitration ClaimStatus = "pending_arbitration"
	ClaimStatusApproved           ClaimStatus = "approved"
	ClaimStatusRejected           ClaimStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s ClaimStatus) Terminal() bool {
	switch s {
	case ClaimStatusAutoApproved, ClaimStatusApproved, ClaimStatusRejected:
		return true
	default:
		return false
	}
}

// ClaimRequest is a claim as submitted by a policyholder. Amounts are minor
// units of the reference currency.
type ClaimRequest struct {
	PolicyID            string
	ClaimAmount         float64
	EvidenceType        EvidenceType
	EvidenceDescription string
	EvidenceAttachments []string // object-store keys of supporting documents
	PolicyAgeDays       int
	PreviousClaimsCount int
	CoverageAmount      float64
}

// ClaimRiskFactors is the per-factor breakdown behind a claim risk score.
type ClaimRiskFactors struct {
	AmountFactor        float64 `json:"amount_factor"`
	AgeFactor           float64 `json:"age_factor"`
	HistoryFactor       float64 `json:"history_factor"`
	CoverageRatioFactor float64 `json:"coverage_ratio_factor"`
}

// ClaimRiskEvaluation is the output of the claim risk evaluator.
type ClaimRiskEvaluation struct {
	RiskScore        float64          `json:"risk_score"` // 0-100
	Factors          ClaimRiskFactors `json:"factors"`
	FlaggedForReview bool             `json:"flagged_for_review"`
}

// ArbitrationVote is a single arbitrator's vote on a claim. Votes are
// append-only and keyed by arbitrator: a second vote from the same
// arbitrator is rejected, not overwritten.
type ArbitrationVote struct {
	ArbitratorID string    `json:"arbitrator_id"`
	Approved     bool      `json:"approved"`
	Comment      string    `json:"comment"`
	Timestamp    time.Time `json:"timestamp"`
}

// ClaimVerdict is the outcome of adjudicating a claim. While a claim is in
// arbitration the verdict is provisional (Approved=false, ArbitrationRequired
// =true) and mutates only by appended votes until finalization.
type ClaimVerdict struct {
	Approved            bool              `json:"approved"`
	PayoutAmount        float64           `json:"payout_amount"`
	Reason              string            `json:"reason"`
	ArbitrationRequired bool              `json:"arbitration_required"`
	Votes               []ArbitrationVote `json:"votes"`
}

// Claim is the persisted record of a submitted claim and its adjudication.
type Claim struct {
	ID                  string
	PolicyID            string
	Amount              float64
	EvidenceType        EvidenceType
	EvidenceDescription string
	EvidenceAttachments []string
	RiskScore           float64
	FlaggedForReview    bool
	Status              ClaimStatus
	PayoutAmount        float64
	Reason              string
	Arbitrators         []string
	Votes               []ArbitrationVote
	SubmittedAt         time.Time
	FinalizedAt         *time.Time
}
