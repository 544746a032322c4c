package handler

import (
	"log/slog"
	"net/http"

	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/service"
)

// QuoteHandler serves premium quote endpoints.
type QuoteHandler struct {
	quotes *service.QuoteService
	logger *slog.Logger
}

// NewQuoteHandler creates a QuoteHandler backed by the given QuoteService.
func NewQuoteHandler(quotes *service.QuoteService, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{
		quotes: quotes,
		logger: logHandler(logger, "quote"),
	}
}

type quoteRequest struct {
	CoverageAmount    float64  `json:"coverage_amount"`
	PeriodDays        int      `json:"period_days"`
	JobType           string   `json:"job_type"`
	Industry          string   `json:"industry"`
	ReputationScore   *float64 `json:"reputation_score,omitempty"`
	ClaimHistoryCount int      `json:"claim_history_count"`
}

// PriceQuote validates and prices a quote request.
// POST /api/quotes
func (h *QuoteHandler) PriceQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	breakdown, err := h.quotes.Quote(r.Context(), domain.PolicyQuote{
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

	writeJSON(w, http.StatusOK, breakdown)
}

// ListRecent returns the latest quote audit rows.
// GET /api/quotes/recent
func (h *QuoteHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	records, err := h.quotes.RecentQuotes(r.Context(), opts.Limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"quotes": records})
}
