package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PolicyStore persists policy records mirrored from the ledger.
type PolicyStore interface {
	Create(ctx context.Context, p Policy) error
	GetByID(ctx context.Context, id string) (Policy, error)
	ListByOwner(ctx context.Context, owner string, opts ListOpts) ([]Policy, error)
	IncrementClaims(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status PolicyStatus) error
}

// ClaimStore persists claims, their arbitration votes, and finalization.
type ClaimStore interface {
	Create(ctx context.Context, c Claim) error
	GetByID(ctx context.Context, id string) (Claim, error)
	ListByPolicy(ctx context.Context, policyID string, opts ListOpts) ([]Claim, error)
	ListByStatus(ctx context.Context, status ClaimStatus, opts ListOpts) ([]Claim, error)
	AppendVote(ctx context.Context, claimID string, vote ArbitrationVote) error
	// Finalize moves a claim to a terminal status and records the verdict.
	Finalize(ctx context.Context, claimID string, status ClaimStatus, payout float64, reason string) error
}

// QuoteStore keeps an audit trail of every premium the engine issued.
type QuoteStore interface {
	Insert(ctx context.Context, q QuoteRecord) error
	ListRecent(ctx context.Context, limit int) ([]QuoteRecord, error)
}
