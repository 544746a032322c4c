// Package pool derives solvency figures from a risk-pool metrics snapshot
// and answers admissibility questions for new policies and claim payouts.
// Everything here is advisory computation over a read-only snapshot: the
// ledger enforces the decisions atomically, this package never mutates
// anything.
package pool

import (
	"math"

	"github.com/freelanceshield/shieldd/internal/domain"
)

// maxSingleClaimShare caps any one payout at this share of total stake.
const maxSingleClaimShare = 0.10

// Params holds the pool solvency parameters.
type Params struct {
	BaseReserveRatio  float64 // minimum stake/coverage ratio the pool must keep
	RecommendedBuffer float64 // upper bound on per-policy reserve, as a coverage fraction
	MaxCoverageAmount float64 // reference ceiling for the reserve scaling curve
}

// DefaultParams returns the standard pool parameters.
func DefaultParams() Params {
	return Params{
		BaseReserveRatio:  0.2,
		RecommendedBuffer: 0.5,
		MaxCoverageAmount: 25_000,
	}
}

// View is a read-only ledger view: a metrics snapshot plus the solvency
// parameters to interpret it with.
type View struct {
	Metrics domain.RiskPoolMetrics
	Params  Params
}

// NewView pairs a metrics snapshot with solvency parameters.
func NewView(m domain.RiskPoolMetrics, p Params) View {
	return View{Metrics: m, Params: p}
}

// RequiredReserve returns the reserve the pool must hold to underwrite a new
// policy of the given coverage. The requirement scales super-linearly as the
// pool approaches its coverage ceiling, and is capped at the recommended
// buffer share of the new coverage.
func (v View) RequiredReserve(newCoverageAmount float64) float64 {
	scalingFactor := math.Pow(
		(v.Metrics.TotalCoverage+newCoverageAmount)/v.Params.MaxCoverageAmount,
		1.5,
	)
	scaled := newCoverageAmount * v.Params.BaseReserveRatio * (1 + scalingFactor)
	return math.Min(scaled, newCoverageAmount*v.Params.RecommendedBuffer)
}

// CanProcessClaim reports whether the pool can safely fund a payout of the
// given amount. Two independent gates must both pass: no single claim may
// exceed 10% of total stake, and the reserve ratio remaining after the
// payout must stay at or above the base reserve ratio. A claim within the
// 10% cap can still be refused on the second gate.
func (v View) CanProcessClaim(amount float64) bool {
	if amount > v.Metrics.TotalStaked*maxSingleClaimShare {
		return false
	}
	if v.Metrics.TotalCoverage <= 0 {
		return true
	}
	remaining := (v.Metrics.TotalStaked - amount) / v.Metrics.TotalCoverage
	return remaining >= v.Params.BaseReserveRatio
}

// SolvencyScore grades the pool's health on a 0-100 scale from its reserve
// ratio, discounted up to 20% when coverage is concentrated in few policies.
func (v View) SolvencyScore() float64 {
	base := math.Min(100, v.Metrics.ReserveRatio()*100)
	diversification := math.Min(1, float64(v.Metrics.ActivePolicies)/20)
	return base * (0.8 + 0.2*diversification)
}
