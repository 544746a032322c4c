package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freelanceshield/shieldd/internal/domain"
)

// QuoteStore implements domain.QuoteStore using PostgreSQL. Quote rows are
// an append-only audit trail; nothing in the engine reads them back on the
// hot path.
type QuoteStore struct {
	pool *pgxpool.Pool
}

var _ domain.QuoteStore = (*QuoteStore)(nil)

// NewQuoteStore creates a new QuoteStore backed by the given connection pool.
func NewQuoteStore(pool *pgxpool.Pool) *QuoteStore {
	return &QuoteStore{pool: pool}
}

// Insert appends a quote audit row.
func (s *QuoteStore) Insert(ctx context.Context, q domain.QuoteRecord) error {
	const query = `
		INSERT INTO quotes (
			id, coverage_amount, period_days, job_type, industry,
			reputation_score, claim_history, premium, risk_score, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)`

	_, err := s.pool.Exec(ctx, query,
		q.ID, q.CoverageAmount, q.PeriodDays, string(q.JobType), string(q.Industry),
		q.ReputationScore, q.ClaimHistory, q.Premium, q.RiskScore, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert quote %s: %w", q.ID, err)
	}
	return nil
}

// ListRecent returns the most recently issued quotes, newest first.
func (s *QuoteStore) ListRecent(ctx context.Context, limit int) ([]domain.QuoteRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, coverage_amount, period_days, job_type, industry,
		       reputation_score, claim_history, premium, risk_score, created_at
		FROM quotes ORDER BY created_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent quotes: %w", err)
	}
	defer rows.Close()

	var out []domain.QuoteRecord
	for rows.Next() {
		var (
			q                 domain.QuoteRecord
			jobType, industry string
		)
		err := rows.Scan(
			&q.ID, &q.CoverageAmount, &q.PeriodDays, &jobType, &industry,
			&q.ReputationScore, &q.ClaimHistory, &q.Premium, &q.RiskScore, &q.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan quote: %w", err)
		}
		q.JobType = domain.JobType(jobType)
		q.Industry = domain.Industry(industry)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate quotes: %w", err)
	}
	return out, nil
}
