package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/service"
)

// ReputationHandler serves reputation scoring endpoints.
type ReputationHandler struct {
	reputation *service.ReputationService
	logger     *slog.Logger
}

// NewReputationHandler creates a ReputationHandler backed by the given
// ReputationService.
func NewReputationHandler(reputation *service.ReputationService, logger *slog.Logger) *ReputationHandler {
	return &ReputationHandler{
		reputation: reputation,
		logger:     logHandler(logger, "reputation"),
	}
}

type reputationRequest struct {
	OnTimePayments     int `json:"on_time_payments"`
	TotalTransactions  int `json:"total_transactions"`
	Disputes           int `json:"disputes"`
	CompletedContracts int `json:"completed_contracts"`

	AvgRating           float64 `json:"avg_rating"`
	PositiveFeedbackPct float64 `json:"positive_feedback_pct"`

	AccountAgeMonths int `json:"account_age_months"`
	LastActiveMonths int `json:"last_active_months"`

	ClaimsMade   int  `json:"claims_made"`
	FraudFlagged bool `json:"fraud_flagged"`

	ContractsLast90Days  int `json:"contracts_last_90_days"`
	DisputesResolved     int `json:"disputes_resolved"`
	DisputesRuledAgainst int `json:"disputes_ruled_against"`

	StakingParticipation    bool `json:"staking_participation"`
	GovernanceParticipation bool `json:"governance_participation"`

	LastContractCompletion *time.Time `json:"last_contract_completion,omitempty"`
}

// ScoreProfile scores a reputation profile.
// POST /api/reputation/score
func (h *ReputationHandler) ScoreProfile(w http.ResponseWriter, r *http.Request) {
	var req reputationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result := h.reputation.Score(r.Context(), domain.ReputationProfile{
		OnTimePayments:          req.OnTimePayments,
		TotalTransactions:       req.TotalTransactions,
		Disputes:                req.Disputes,
		CompletedContracts:      req.CompletedContracts,
		AvgRating:               req.AvgRating,
		PositiveFeedbackPct:     req.PositiveFeedbackPct,
		AccountAgeMonths:        req.AccountAgeMonths,
		LastActiveMonths:        req.LastActiveMonths,
		ClaimsMade:              req.ClaimsMade,
		FraudFlagged:            req.FraudFlagged,
		ContractsLast90Days:     req.ContractsLast90Days,
		DisputesResolved:        req.DisputesResolved,
		DisputesRuledAgainst:    req.DisputesRuledAgainst,
		StakingParticipation:    req.StakingParticipation,
		GovernanceParticipation: req.GovernanceParticipation,
		LastContractCompletion:  req.LastContractCompletion,
	})

	writeJSON(w, http.StatusOK, result)
}

// PremiumFactor maps a reputation score to its premium multiplier.
// GET /api/reputation/factor?score=
func (h *ReputationHandler) PremiumFactor(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("score")
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil || score < 0 || score > 100 {
		writeError(w, http.StatusBadRequest, "score must be a number between 0 and 100")
		return
	}

	writeJSON(w, http.StatusOK, map[string]float64{
		"score":          score,
		"premium_factor": h.reputation.PremiumFactor(score),
	})
}
