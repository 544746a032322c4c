package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freelanceshield/shieldd/internal/domain"
)

// PolicyStore implements domain.PolicyStore using PostgreSQL.
type PolicyStore struct {
	pool *pgxpool.Pool
}

var _ domain.PolicyStore = (*PolicyStore)(nil)

// NewPolicyStore creates a new PolicyStore backed by the given connection pool.
func NewPolicyStore(pool *pgxpool.Pool) *PolicyStore {
	return &PolicyStore{pool: pool}
}

// Create inserts a new policy record.
func (s *PolicyStore) Create(ctx context.Context, p domain.Policy) error {
	const query = `
		INSERT INTO policies (
			id, owner, coverage_amount, premium, period_days,
			job_type, industry, claims_count, status,
			started_at, expires_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, NOW(), NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.Owner, p.CoverageAmount, p.Premium, p.PeriodDays,
		string(p.JobType), string(p.Industry), p.ClaimsCount, string(p.Status),
		p.StartedAt, p.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create policy %s: %w", p.ID, err)
	}
	return nil
}

// GetByID fetches a single policy or domain.ErrNotFound.
func (s *PolicyStore) GetByID(ctx context.Context, id string) (domain.Policy, error) {
	const query = `
		SELECT id, owner, coverage_amount, premium, period_days,
		       job_type, industry, claims_count, status,
		       started_at, expires_at, created_at, updated_at
		FROM policies WHERE id = $1`

	p, err := scanPolicy(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Policy{}, domain.ErrNotFound
		}
		return domain.Policy{}, fmt.Errorf("postgres: get policy %s: %w", id, err)
	}
	return p, nil
}

// ListByOwner returns the owner's policies, newest first.
func (s *PolicyStore) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Policy, error) {
	query := `
		SELECT id, owner, coverage_amount, premium, period_days,
		       job_type, industry, claims_count, status,
		       started_at, expires_at, created_at, updated_at
		FROM policies WHERE owner = $1`
	args := []any{owner}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list policies for %s: %w", owner, err)
	}
	defer rows.Close()

	var out []domain.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan policy: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate policies: %w", err)
	}
	return out, nil
}

// IncrementClaims bumps the policy's claim counter.
func (s *PolicyStore) IncrementClaims(ctx context.Context, id string) error {
	const query = `
		UPDATE policies
		SET claims_count = claims_count + 1, updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: increment claims for policy %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStatus changes the status of an existing policy.
func (s *PolicyStore) UpdateStatus(ctx context.Context, id string, status domain.PolicyStatus) error {
	const query = `UPDATE policies SET status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := s.pool.Exec(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("postgres: update policy status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPolicy(row pgx.Row) (domain.Policy, error) {
	var (
		p                 domain.Policy
		jobType, industry string
		status            string
	)
	err := row.Scan(
		&p.ID, &p.Owner, &p.CoverageAmount, &p.Premium, &p.PeriodDays,
		&jobType, &industry, &p.ClaimsCount, &status,
		&p.StartedAt, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Policy{}, err
	}
	p.JobType = domain.JobType(jobType)
	p.Industry = domain.Industry(industry)
	p.Status = domain.PolicyStatus(status)
	return p, nil
}
