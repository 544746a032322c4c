package handler

import (
	"log/slog"
	"net/http"

	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/service"
)

// PolicyHandler serves the policy mirror endpoints.
type PolicyHandler struct {
	policies *service.PolicyService
	logger   *slog.Logger
}

// NewPolicyHandler creates a PolicyHandler backed by the given PolicyService.
func NewPolicyHandler(policies *service.PolicyService, logger *slog.Logger) *PolicyHandler {
	return &PolicyHandler{
		policies: policies,
		logger:   logHandler(logger, "policy"),
	}
}

type registerPolicyRequest struct {
	Owner             string   `json:"owner"`
	CoverageAmount    float64  `json:"coverage_amount"`
	PeriodDays        int      `json:"period_days"`
	JobType           string   `json:"job_type"`
	Industry          string   `json:"industry"`
	ReputationScore   *float64 `json:"reputation_score,omitempty"`
	ClaimHistoryCount int      `json:"claim_history_count"`
}

// RegisterPolicy prices and records a new policy.
// POST /api/policies
func (h *PolicyHandler) RegisterPolicy(w http.ResponseWriter, r *http.Request) {
	var req registerPolicyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Owner == "" {
		writeError(w, http.StatusBadRequest, "owner is required")
		return
	}

	policy, err := h.policies.Register(r.Context(), service.PolicyRegistration{
		Owner:             req.Owner,
		CoverageAmount:    req.CoverageAmount,
		PeriodDays:        req.PeriodDays,
		JobType:           domain.JobType(req.JobType),
		Industry:          domain.Industry(req.Industry),
		ReputationScore:   req.ReputationScore,
		ClaimHistoryCount: req.ClaimHistoryCount,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, policyResponse(policy))
}

// GetPolicy returns one policy.
// GET /api/policies/{id}
func (h *PolicyHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.policies.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, policyResponse(policy))
}

// ListPolicies returns an owner's policies.
// GET /api/policies?owner=
func (h *PolicyHandler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner query parameter is required")
		return
	}

	list, err := h.policies.ListByOwner(r.Context(), owner, parseListOpts(r))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	out := make([]map[string]any, 0, len(list))
	for _, p := range list {
		out = append(out, policyResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"policies": out})
}

// policyResponse shapes a policy for JSON output.
func policyResponse(p domain.Policy) map[string]any {
	return map[string]any{
		"id":              p.ID,
		"owner":           p.Owner,
		"coverage_amount": p.CoverageAmount,
		"premium":         p.Premium,
		"period_days":     p.PeriodDays,
		"job_type":        p.JobType,
		"industry":        p.Industry,
		"claims_count":    p.ClaimsCount,
		"status":          p.Status,
		"started_at":      p.StartedAt,
		"expires_at":      p.ExpiresAt,
	}
}
