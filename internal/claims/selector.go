package claims

import (
	"context"

	"github.com/freelanceshield/shieldd/internal/domain"
)

// ArbitratorSelector chooses the arbitrator set for a claim. Selection is
// pluggable so deployments can route by expertise, stake, or reputation.
type ArbitratorSelector interface {
	Select(ctx context.Context, evidenceType domain.EvidenceType) ([]string, error)
}

// StaticSelector returns a fixed, configured arbitrator panel regardless of
// claim type. It is the reference selector for test and development
// deployments.
type StaticSelector struct {
	arbitrators []string
}

// NewStaticSelector creates a StaticSelector over the given panel.
func NewStaticSelector(arbitrators []string) *StaticSelector {
	return &StaticSelector{arbitrators: arbitrators}
}

// Select returns the configured panel.
func (s *StaticSelector) Select(_ context.Context, _ domain.EvidenceType) ([]string, error) {
	out := make([]string, len(s.arbitrators))
	copy(out, s.arbitrators)
	return out, nil
}

// BreachVerifier independently confirms a payment breach from the submitted
// evidence. Implementations may consult escrow state, ledger events, or an
// attachment integrity check.
type BreachVerifier interface {
	VerifyPaymentBreach(ctx context.Context, req domain.ClaimRequest) (bool, error)
}

// AttachmentBreachVerifier is the reference verifier: a payment breach is
// considered verified when the claim carries at least one evidence
// attachment whose integrity digest checks out against the attachment
// authenticator.
type AttachmentBreachVerifier struct {
	authenticate func(ctx context.Context, key string) bool
}

// NewAttachmentBreachVerifier creates a verifier using the given per-key
// authenticity check. The check receives the adjudication context so it can
// honor cancellation. A nil check accepts any present attachment.
func NewAttachmentBreachVerifier(authenticate func(ctx context.Context, key string) bool) *AttachmentBreachVerifier {
	return &AttachmentBreachVerifier{authenticate: authenticate}
}

// VerifyPaymentBreach reports whether the claim's evidence supports a
// payment breach.
func (v *AttachmentBreachVerifier) VerifyPaymentBreach(ctx context.Context, req domain.ClaimRequest) (bool, error) {
	if len(req.EvidenceAttachments) == 0 {
		return false, nil
	}
	if v.authenticate == nil {
		return true, nil
	}
	for _, key := range req.EvidenceAttachments {
		if v.authenticate(ctx, key) {
			return true, nil
		}
	}
	return false, nil
}
