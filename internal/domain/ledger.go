package domain

import "context"

// LedgerReader is the read-only boundary to the on-chain risk pool. The
// ledger serializes all mutations (payouts, stakes, coverage updates);
// this backend only observes. Implementations convert native token base
// units into engine minor units.
type LedgerReader interface {
	// PoolMetrics reads the current pool state from the ledger.
	PoolMetrics(ctx context.Context) (RiskPoolMetrics, error)
}
