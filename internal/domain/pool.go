package domain

import "time"

// RiskPoolMetrics is a read-only snapshot of pool-wide solvency state,
// supplied by the external ledger. The engine never mutates it, only derives
// ratios from it. Currency fields are minor units of the reference currency.
type RiskPoolMetrics struct {
	TotalStaked    float64   `json:"total_staked"`
	TotalCoverage  float64   `json:"total_coverage"`
	ActiveStakers  int       `json:"active_stakers"`
	ActivePolicies int       `json:"active_policies"`
	ClaimsPaid     float64   `json:"claims_paid"`
	YieldAPY       float64   `json:"yield_apy"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// ReserveRatio is totalStaked / totalCoverage, the pool's solvency proxy.
// It returns 0 when there is no outstanding coverage.
func (m RiskPoolMetrics) ReserveRatio() float64 {
	if m.TotalCoverage <= 0 {
		return 0
	}
	return m.TotalStaked / m.TotalCoverage
}
