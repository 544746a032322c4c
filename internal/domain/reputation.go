package domain

import "time"

// ReputationProfile is a user's verifiable activity history, assembled by the
// caller from platform records. All counts are non-negative; validating that
// is the caller's job, the scorer treats them as already clean.
type ReputationProfile struct {
	OnTimePayments     int
	TotalTransactions  int
	Disputes           int
	CompletedContracts int

	AvgRating           float64 // 1-5 scale
	PositiveFeedbackPct float64

	AccountAgeMonths int
	LastActiveMonths int

	ClaimsMade   int
	FraudFlagged bool

	ContractsLast90Days  int
	DisputesResolved     int
	DisputesRuledAgainst int

	StakingParticipation    bool
	GovernanceParticipation bool

	LastContractCompletion *time.Time
}

// RiskLevel buckets a reputation score into one of three bands.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "Low Risk"
	RiskLevelMedium RiskLevel = "Medium Risk"
	RiskLevelHigh   RiskLevel = "High Risk"
)

// ReputationBreakdown holds the weighted per-category contributions to a
// reputation score.
type ReputationBreakdown struct {
	WorkHistory       float64 `json:"work_history"`
	PaymentHistory    float64 `json:"payment_history"`
	DisputeResolution float64 `json:"dispute_resolution"`
	Activity          float64 `json:"activity"`
	Governance        float64 `json:"governance"`
}

// ActivityEntry is one line of the recent-activity log attached to a score.
type ActivityEntry struct {
	Description string    `json:"description"`
	Impact      float64   `json:"impact"`
	Date        time.Time `json:"date"`
}

// ReputationScoreResult is the stateless output of the reputation scorer.
type ReputationScoreResult struct {
	Score           float64             `json:"score"` // 0-100
	Breakdown       ReputationBreakdown `json:"breakdown"`
	RiskLevel       RiskLevel           `json:"risk_level"`
	PremiumDiscount float64             `json:"premium_discount_pct"`
	DiscountTier    string              `json:"discount_tier"`
	ImprovementAreas []string           `json:"improvement_areas"`
	RecentActivity   []ActivityEntry    `json:"recent_activity"`
	TimeDecayFactor  float64            `json:"time_decay_factor"`
}
