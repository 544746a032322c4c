package domain

import "time"

// JobType is the freelance job category a policy covers.
type JobType string

const (
	JobSoftwareDevelopment JobType = "SOFTWARE_DEVELOPMENT"
	JobDesign              JobType = "DESIGN"
	JobWriting             JobType = "WRITING"
	JobMarketing           JobType = "MARKETING"
	JobConsulting          JobType = "CONSULTING"
	JobOther               JobType = "OTHER"
)

// Industry is the client industry a policy covers.
type Industry string

const (
	IndustryTechnology Industry = "TECHNOLOGY"
	IndustryFinance    Industry = "FINANCE"
	IndustryHealthcare Industry = "HEALTHCARE"
	IndustryEducation  Industry = "EDUCATION"
	IndustryRetail     Industry = "RETAIL"
	IndustryOther      Industry = "OTHER"
)

// PolicyQuote is a pricing request. All currency fields are minor units of
// the reference currency; callers convert native ledger units before calling
// the engine. Quotes are ephemeral: the engine prices them and forgets them
// (an audit row is kept by the quote service, not the engine).
type PolicyQuote struct {
	CoverageAmount    float64
	PeriodDays        int
	JobType           JobType
	Industry          Industry
	ReputationScore   *float64 // 0-100; nil means "unknown", priced as 80
	ClaimHistoryCount int
}

// PremiumFactors is the multiplicative breakdown of a priced premium.
type PremiumFactors struct {
	BaseRate         float64 `json:"base_rate"`
	CoverageRatio    float64 `json:"coverage_ratio"`
	PeriodAdjustment float64 `json:"period_adjustment"`
	RiskAdjustment   float64 `json:"risk_adjustment"`
	ReputationFactor float64 `json:"reputation_factor"`
	MarketConditions float64 `json:"market_conditions"`
}

// PremiumBreakdown is the result of pricing a quote. Immutable once returned.
type PremiumBreakdown struct {
	Premium   float64        `json:"premium"`
	RiskScore float64        `json:"risk_score"` // 0-100, higher is riskier
	Factors   PremiumFactors `json:"factors"`
}

// QuoteRecord is the audit row persisted for every premium the engine issues.
type QuoteRecord struct {
	ID              string
	CoverageAmount  float64
	PeriodDays      int
	JobType         JobType
	Industry        Industry
	ReputationScore float64
	ClaimHistory    int
	Premium         float64
	RiskScore       float64
	CreatedAt       time.Time
}
