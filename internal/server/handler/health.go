package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	mode    string
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler reporting the given run mode.
func NewHealthHandler(mode string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{mode: mode, started: time.Now().UTC(), logger: logger}
}

// HealthCheck reports liveness, the active run mode, and process uptime.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "shieldd",
		"mode":      h.mode,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
