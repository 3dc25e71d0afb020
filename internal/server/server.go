// Package server exposes the registry over a headless HTTP and WebSocket API.
// Read endpoints are open to any authenticated caller; every mutating
// endpoint acts on behalf of the principal resolved from the caller's API
// key, so the registry's own authorization rules decide what it may do.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
	"github.com/harborfi/vaultguard/internal/server/handler"
	"github.com/harborfi/vaultguard/internal/server/middleware"
	"github.com/harborfi/vaultguard/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKeys     map[string]common.Address // key -> principal; empty disables auth
	RateLimit   int                       // requests per window per client, 0 disables
	RateWindow  time.Duration
}

// Handlers aggregates all HTTP handlers that the server registers.
type Handlers struct {
	Health     *handler.HealthHandler
	Status     *handler.StatusHandler
	Governance *handler.GovernanceHandler
	Adaptors   *handler.AdaptorHandler
	Positions  *handler.PositionHandler
	Funds      *handler.FundHandler
	Addresses  *handler.AddressHandler
	Audit      *handler.AuditHandler
}

// Server is the registry's HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (rate limiting, auth, logging, CORS) wired up. The
// limiter may be nil when rate limiting is disabled.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health and status.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	// Governance.
	mux.HandleFunc("GET /api/governance", handlers.Governance.GetOwner)
	mux.HandleFunc("POST /api/governance/transition", handlers.Governance.StartTransition)
	mux.HandleFunc("DELETE /api/governance/transition", handlers.Governance.CancelTransition)
	mux.HandleFunc("POST /api/governance/transition/complete", handlers.Governance.CompleteTransition)

	// Adaptor trust ledger.
	mux.HandleFunc("GET /api/adaptors", handlers.Adaptors.ListAdaptors)
	mux.HandleFunc("GET /api/adaptors/{ref}", handlers.Adaptors.GetAdaptor)
	mux.HandleFunc("POST /api/adaptors/{ref}/trust", handlers.Adaptors.TrustAdaptor)
	mux.HandleFunc("DELETE /api/adaptors/{ref}/trust", handlers.Adaptors.DistrustAdaptor)

	// Position registry.
	mux.HandleFunc("GET /api/positions", handlers.Positions.ListPositions)
	mux.HandleFunc("POST /api/positions", handlers.Positions.TrustPosition)
	mux.HandleFunc("GET /api/positions/{id}", handlers.Positions.GetPosition)
	mux.HandleFunc("DELETE /api/positions/{id}/trust", handlers.Positions.DistrustPosition)
	mux.HandleFunc("GET /api/positions/hash/{hash}", handlers.Positions.LookupByHash)

	// Funds and the volume throttle.
	mux.HandleFunc("GET /api/funds", handlers.Funds.ListFunds)
	mux.HandleFunc("POST /api/funds", handlers.Funds.RegisterFund)
	mux.HandleFunc("POST /api/funds/pause", handlers.Funds.Pause)
	mux.HandleFunc("POST /api/funds/unpause", handlers.Funds.Unpause)
	mux.HandleFunc("GET /api/funds/{address}/volume", handlers.Funds.GetVolumeWindow)
	mux.HandleFunc("PUT /api/funds/{address}/volume", handlers.Funds.SetVolumeParams)

	// Address-config table.
	mux.HandleFunc("POST /api/addresses", handlers.Addresses.Register)
	mux.HandleFunc("GET /api/addresses/{slot}", handlers.Addresses.GetAddress)
	mux.HandleFunc("PUT /api/addresses/{slot}", handlers.Addresses.SetAddress)

	// Audit log.
	mux.HandleFunc("GET /api/audit", handlers.Audit.ListEntries)

	// WebSocket event stream.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKeys)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}
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
		mux:        mux,
		logger:     logger.With(slog.String("component", "server")),
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
