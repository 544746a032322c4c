package domain

import "time"

// PolicyStatus is the lifecycle state of an insurance policy.
type PolicyStatus string

const (
	PolicyStatusActive  PolicyStatus = "active"
	PolicyStatusExpired PolicyStatus = "expired"
	PolicyStatusLapsed  PolicyStatus = "lapsed"
)

// Policy is an issued insurance policy as known to this backend. The ledger
// owns the authoritative copy; this record mirrors the fields the engine
// needs for claims adjudication.
type Policy struct {
	ID             string
	Owner          string // ledger account of the policyholder
	CoverageAmount float64
	Premium        float64
	PeriodDays     int
	JobType        JobType
	Industry       Industry
	ClaimsCount    int
	Status         PolicyStatus
	StartedAt      time.Time
	ExpiresAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AgeDays returns the policy age in whole days at the given instant.
func (p Policy) AgeDays(now time.Time) int {
	if now.Before(p.StartedAt) {
		return 0
	}
	return int(now.Sub(p.StartedAt).Hours() / 24)
}
