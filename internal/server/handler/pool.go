package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/freelanceshield/shieldd/internal/service"
)

// PoolHandler serves the risk-pool solvency endpoints.
type PoolHandler struct {
	pools  *service.PoolService
	logger *slog.Logger
}

// NewPoolHandler creates a PoolHandler backed by the given PoolService.
func NewPoolHandler(pools *service.PoolService, logger *slog.Logger) *PoolHandler {
	return &PoolHandler{
		pools:  pools,
		logger: logHandler(logger, "pool"),
	}
}

// GetMetrics returns the latest pool snapshot with derived solvency figures.
// GET /api/pool/metrics
func (h *PoolHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	view, err := h.pools.View(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"metrics":        view.Metrics,
		"reserve_ratio":  view.Metrics.ReserveRatio(),
		"solvency_score": view.SolvencyScore(),
	})
}

// GetRequiredReserve returns the reserve needed to underwrite new coverage.
// GET /api/pool/reserve?coverage=
func (h *PoolHandler) GetRequiredReserve(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("coverage")
	coverage, err := strconv.ParseFloat(raw, 64)
	if err != nil || coverage <= 0 {
		writeError(w, http.StatusBadRequest, "coverage must be a positive number")
		return
	}

	view, err := h.pools.View(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"coverage_amount":   coverage,
		"required_reserve":  view.RequiredReserve(coverage),
		"can_process_claim": view.CanProcessClaim(coverage),
	})
}
