package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freelanceshield/shieldd/internal/domain"
)

// ClaimStore implements domain.ClaimStore using PostgreSQL. Claims live in
// the claims table; arbitration votes are append-only rows in claim_votes
// with a (claim_id, arbitrator_id) primary key, so a duplicate vote fails at
// the database even if the in-memory guard was bypassed.
type ClaimStore struct {
	pool *pgxpool.Pool
}

var _ domain.ClaimStore = (*ClaimStore)(nil)

// NewClaimStore creates a new ClaimStore backed by the given connection pool.
func NewClaimStore(pool *pgxpool.Pool) *ClaimStore {
	return &ClaimStore{pool: pool}
}

// Create inserts a new claim record.
func (s *ClaimStore) Create(ctx context.Context, c domain.Claim) error {
	attachments, err := json.Marshal(c.EvidenceAttachments)
	if err != nil {
		return fmt.Errorf("postgres: marshal attachments for claim %s: %w", c.ID, err)
	}
	arbitrators, err := json.Marshal(c.Arbitrators)
	if err != nil {
		return fmt.Errorf("postgres: marshal arbitrators for claim %s: %w", c.ID, err)
	}

	const query = `
		INSERT INTO claims (
			id, policy_id, amount, evidence_type, evidence_description,
			evidence_attachments, risk_score, flagged_for_review, status,
			payout_amount, reason, arbitrators, submitted_at, finalized_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14
		)`

	_, err = s.pool.Exec(ctx, query,
		c.ID, c.PolicyID, c.Amount, string(c.EvidenceType), c.EvidenceDescription,
		attachments, c.RiskScore, c.FlaggedForReview, string(c.Status),
		c.PayoutAmount, c.Reason, arbitrators, c.SubmittedAt, c.FinalizedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create claim %s: %w", c.ID, err)
	}
	return nil
}

// GetByID fetches a claim with its votes, or domain.ErrNotFound.
func (s *ClaimStore) GetByID(ctx context.Context, id string) (domain.Claim, error) {
	const query = `
		SELECT id, policy_id, amount, evidence_type, evidence_description,
		       evidence_attachments, risk_score, flagged_for_review, status,
		       payout_amount, reason, arbitrators, submitted_at, finalized_at
		FROM claims WHERE id = $1`

	c, err := scanClaim(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Claim{}, domain.ErrNotFound
		}
		return domain.Claim{}, fmt.Errorf("postgres: get claim %s: %w", id, err)
	}

	votes, err := s.votesFor(ctx, id)
	if err != nil {
		return domain.Claim{}, err
	}
	c.Votes = votes
	return c, nil
}

// ListByPolicy returns the policy's claims, newest first, without votes.
func (s *ClaimStore) ListByPolicy(ctx context.Context, policyID string, opts domain.ListOpts) ([]domain.Claim, error) {
	return s.list(ctx, "policy_id = $1", policyID, opts)
}

// ListByStatus returns claims in the given status, newest first, without
// votes.
func (s *ClaimStore) ListByStatus(ctx context.Context, status domain.ClaimStatus, opts domain.ListOpts) ([]domain.Claim, error) {
	return s.list(ctx, "status = $1", string(status), opts)
}

func (s *ClaimStore) list(ctx context.Context, where string, arg any, opts domain.ListOpts) ([]domain.Claim, error) {
	query := `
		SELECT id, policy_id, amount, evidence_type, evidence_description,
		       evidence_attachments, risk_score, flagged_for_review, status,
		       payout_amount, reason, arbitrators, submitted_at, finalized_at
		FROM claims WHERE ` + where
	args := []any{arg}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND submitted_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	query += " ORDER BY submitted_at DESC"
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
		return nil, fmt.Errorf("postgres: list claims: %w", err)
	}
	defer rows.Close()

	var out []domain.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan claim: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate claims: %w", err)
	}
	return out, nil
}

// AppendVote records an arbitrator's vote. A second vote from the same
// arbitrator violates the primary key and maps to domain.ErrDuplicateVote.
func (s *ClaimStore) AppendVote(ctx context.Context, claimID string, vote domain.ArbitrationVote) error {
	const query = `
		INSERT INTO claim_votes (claim_id, arbitrator_id, approved, comment, voted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (claim_id, arbitrator_id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query,
		claimID, vote.ArbitratorID, vote.Approved, vote.Comment, vote.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: append vote for claim %s: %w", claimID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateVote
	}
	return nil
}

// Finalize moves a claim to a terminal status and records the verdict. An
// already finalized claim returns domain.ErrClaimFinalized.
func (s *ClaimStore) Finalize(ctx context.Context, claimID string, status domain.ClaimStatus, payout float64, reason string) error {
	const query = `
		UPDATE claims
		SET status = $1, payout_amount = $2, reason = $3, finalized_at = NOW()
		WHERE id = $4 AND finalized_at IS NULL`

	tag, err := s.pool.Exec(ctx, query, string(status), payout, reason, claimID)
	if err != nil {
		return fmt.Errorf("postgres: finalize claim %s: %w", claimID, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing claim from one already finalized.
		var exists bool
		if err := s.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM claims WHERE id = $1)", claimID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: check claim %s: %w", claimID, err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrClaimFinalized
	}
	return nil
}

func (s *ClaimStore) votesFor(ctx context.Context, claimID string) ([]domain.ArbitrationVote, error) {
	const query = `
		SELECT arbitrator_id, approved, comment, voted_at
		FROM claim_votes WHERE claim_id = $1
		ORDER BY voted_at ASC, arbitrator_id ASC`

	rows, err := s.pool.Query(ctx, query, claimID)
	if err != nil {
		return nil, fmt.Errorf("postgres: votes for claim %s: %w", claimID, err)
	}
	defer rows.Close()

	var votes []domain.ArbitrationVote
	for rows.Next() {
		var v domain.ArbitrationVote
		if err := rows.Scan(&v.ArbitratorID, &v.Approved, &v.Comment, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate votes: %w", err)
	}
	return votes, nil
}

func scanClaim(row pgx.Row) (domain.Claim, error) {
	var (
		c                           domain.Claim
		evidenceType, status        string
		attachmentsRaw, arbitrators []byte
	)
	err := row.Scan(
		&c.ID, &c.PolicyID, &c.Amount, &evidenceType, &c.EvidenceDescription,
		&attachmentsRaw, &c.RiskScore, &c.FlaggedForReview, &status,
		&c.PayoutAmount, &c.Reason, &arbitrators, &c.SubmittedAt, &c.FinalizedAt,
	)
	if err != nil {
		return domain.Claim{}, err
	}
	c.EvidenceType = domain.EvidenceType(evidenceType)
	c.Status = domain.ClaimStatus(status)
	if err := json.Unmarshal(attachmentsRaw, &c.EvidenceAttachments); err != nil {
		return domain.Claim{}, fmt.Errorf("unmarshal attachments: %w", err)
	}
	if err := json.Unmarshal(arbitrators, &c.Arbitrators); err != nil {
		return domain.Claim{}, fmt.Errorf("unmarshal arbitrators: %w", err)
	}
	return c, nil
}
