// Package server assembles the HTTP + WebSocket API of the risk engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/server/handler"
	"github.com/freelanceshield/shieldd/internal/server/middleware"
	"github.com/freelanceshield/shieldd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
	RateLimit   int    // requests per window per client; 0 disables
	RateWindow  time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health     *handler.HealthHandler
	Quotes     *handler.QuoteHandler
	Reputation *handler.ReputationHandler
	Policies   *handler.PolicyHandler
	Claims     *handler.ClaimHandler
	Pool       *handler.PoolHandler
}

// Server is the risk engine's HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes on a ServeMux and wires the middleware
// chain (rate limit, auth, logging, CORS) around it. The rate limiter and
// hub may be nil; the corresponding features are then disabled.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Quotes.
	mux.HandleFunc("POST /api/quotes", handlers.Quotes.PriceQuote)
	mux.HandleFunc("GET /api/quotes/recent", handlers.Quotes.ListRecent)

	// Reputation.
	mux.HandleFunc("POST /api/reputation/score", handlers.Reputation.ScoreProfile)
	mux.HandleFunc("GET /api/reputation/factor", handlers.Reputation.PremiumFactor)

	// Policies.
	mux.HandleFunc("POST /api/policies", handlers.Policies.RegisterPolicy)
	mux.HandleFunc("GET /api/policies", handlers.Policies.ListPolicies)
	mux.HandleFunc("GET /api/policies/{id}", handlers.Policies.GetPolicy)

	// Claims.
	mux.HandleFunc("POST /api/claims", handlers.Claims.SubmitClaim)
	mux.HandleFunc("GET /api/claims", handlers.Claims.ListClaims)
	mux.HandleFunc("GET /api/claims/{id}", handlers.Claims.GetClaim)
	mux.HandleFunc("POST /api/claims/{id}/votes", handlers.Claims.SubmitVote)
	mux.HandleFunc("POST /api/claims/{id}/finalize", handlers.Claims.FinalizeClaim)
	mux.HandleFunc("POST /api/claims/{id}/evidence", handlers.Claims.UploadEvidence)
	mux.HandleFunc("GET /api/claims/{id}/evidence", handlers.Claims.ListEvidence)

	// Pool solvency.
	mux.HandleFunc("GET /api/pool/metrics", handlers.Pool.GetMetrics)
	mux.HandleFunc("GET /api/pool/reserve", handlers.Pool.GetRequiredReserve)

	// WebSocket event stream.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
