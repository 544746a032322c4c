package handler

import (
	"log/slog"
	"net/http"
	"path"
	"time"

	s3blob "github.com/freelanceshield/shieldd/internal/blob/s3"
	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/service"
)

// maxEvidenceUpload caps a single attachment upload at 32 MiB.
const maxEvidenceUpload = 32 << 20

// presignExpiry is how long evidence download links stay valid.
const presignExpiry = 15 * time.Minute

// ClaimHandler serves the claim lifecycle endpoints.
type ClaimHandler struct {
	claims   *service.ClaimService
	evidence *service.EvidenceService
	logger   *slog.Logger
}

// NewClaimHandler creates a ClaimHandler backed by the claim and evidence
// services.
func NewClaimHandler(claims *service.ClaimService, evidence *service.EvidenceService, logger *slog.Logger) *ClaimHandler {
	return &ClaimHandler{
		claims:   claims,
		evidence: evidence,
		logger:   logHandler(logger, "claim"),
	}
}

type submitClaimRequest struct {
	PolicyID            string   `json:"policy_id"`
	Amount              float64  `json:"amount"`
	EvidenceType        string   `json:"evidence_type"`
	EvidenceDescription string   `json:"evidence_description"`
	EvidenceAttachments []string `json:"evidence_attachments"`
}

// SubmitClaim runs intake and adjudication for a new claim.
// POST /api/claims
func (h *ClaimHandler) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	var req submitClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.PolicyID == "" {
		writeError(w, http.StatusBadRequest, "policy_id is required")
		return
	}

	claim, err := h.claims.Submit(r.Context(), service.ClaimSubmission{
		PolicyID:            req.PolicyID,
		Amount:              req.Amount,
		EvidenceType:        domain.EvidenceType(req.EvidenceType),
		EvidenceDescription: req.EvidenceDescription,
		EvidenceAttachments: req.EvidenceAttachments,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, claimResponse(claim))
}

// GetClaim returns one claim with its votes.
// GET /api/claims/{id}
func (h *ClaimHandler) GetClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := h.claims.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse(claim))
}

// ListClaims returns claims filtered by policy or status.
// GET /api/claims?policy_id= | ?status=
func (h *ClaimHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var (
		list []domain.Claim
		err  error
	)
	switch {
	case r.URL.Query().Get("policy_id") != "":
		list, err = h.claims.ListByPolicy(r.Context(), r.URL.Query().Get("policy_id"), opts)
	case r.URL.Query().Get("status") != "":
		list, err = h.claims.ListByStatus(r.Context(), domain.ClaimStatus(r.URL.Query().Get("status")), opts)
	default:
		writeError(w, http.StatusBadRequest, "policy_id or status query parameter is required")
		return
	}
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	out := make([]map[string]any, 0, len(list))
	for _, c := range list {
		out = append(out, claimResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"claims": out})
}

type voteRequest struct {
	ArbitratorID string `json:"arbitrator_id"`
	Approved     bool   `json:"approved"`
	Comment      string `json:"comment"`
}

// SubmitVote records one arbitrator's vote.
// POST /api/claims/{id}/votes
func (h *ClaimHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ArbitratorID == "" {
		writeError(w, http.StatusBadRequest, "arbitrator_id is required")
		return
	}

	vote, err := h.claims.Vote(r.Context(), r.PathValue("id"), req.ArbitratorID, req.Approved, req.Comment)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, vote)
}

// FinalizeClaim closes a claim's arbitration round.
// POST /api/claims/{id}/finalize
func (h *ClaimHandler) FinalizeClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := h.claims.Finalize(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse(claim))
}

// UploadEvidence stores one attachment for a claim and returns its object
// key and integrity digest.
// POST /api/claims/{id}/evidence (multipart form, field "file")
func (h *ClaimHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	claimID := r.PathValue("id")
	if _, err := h.claims.Get(r.Context(), claimID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxEvidenceUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	filename := path.Base(header.Filename)
	if filename == "" || filename == "." || filename == "/" {
		writeError(w, http.StatusBadRequest, "attachment filename is required")
		return
	}

	key := s3blob.EvidenceKey(claimID, filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	digest, err := h.evidence.Upload(r.Context(), key, file, contentType)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"key":    key,
		"digest": digest,
	})
}

// ListEvidence returns presigned download links for a claim's attachments.
// GET /api/claims/{id}/evidence
func (h *ClaimHandler) ListEvidence(w http.ResponseWriter, r *http.Request) {
	claimID := r.PathValue("id")
	if _, err := h.claims.Get(r.Context(), claimID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	keys, err := h.evidence.List(r.Context(), s3blob.EvidencePrefix(claimID))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	items := make([]map[string]string, 0, len(keys))
	for _, key := range keys {
		url, err := h.evidence.Presign(r.Context(), key, presignExpiry)
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		items = append(items, map[string]string{"key": key, "url": url})
	}

	writeJSON(w, http.StatusOK, map[string]any{"evidence": items})
}

// claimResponse shapes a claim for JSON output.
func claimResponse(c domain.Claim) map[string]any {
	out := map[string]any{
		"id":                   c.ID,
		"policy_id":            c.PolicyID,
		"amount":               c.Amount,
		"evidence_type":        c.EvidenceType,
		"evidence_description": c.EvidenceDescription,
		"evidence_attachments": c.EvidenceAttachments,
		"risk_score":           c.RiskScore,
		"flagged_for_review":   c.FlaggedForReview,
		"status":               c.Status,
		"payout_amount":        c.PayoutAmount,
		"reason":               c.Reason,
		"arbitrators":          c.Arbitrators,
		"votes":                c.Votes,
		"submitted_at":         c.SubmittedAt,
	}
	if c.FinalizedAt != nil {
		out["finalized_at"] = c.FinalizedAt
	}
	return out
}
