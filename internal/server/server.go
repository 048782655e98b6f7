package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultAPIAddr is the default listen address of the JSON API.
	DefaultAPIAddr = ":3001"

	// DefaultReadHeaderTimeout bounds reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultIdleTimeout closes idle keep-alive connections.
	DefaultIdleTimeout = 120 * time.Second
)

// APIServer serves the JSON API. There is no write timeout: a request may
// wait for interactive authorization, which has its own bound.
type APIServer struct {
	httpServer *http.Server
	health     *HealthChecker
	limiter    *RateLimiter
	logger     *slog.Logger
}

// NewAPIServer creates a server for handler on addr.
func NewAPIServer(addr string, handler http.Handler, health *HealthChecker, limiter *RateLimiter, logger *slog.Logger) *APIServer {
	if addr == "" {
		addr = DefaultAPIAddr
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &APIServer{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
		health:  health,
		limiter: limiter,
		logger:  logger,
	}
}

// Start serves until Shutdown is called. It blocks and returns
// http.ErrServerClosed after a graceful shutdown.
func (s *APIServer) Start(ctx context.Context) error {
	if s.limiter != nil {
		go s.limiter.Run(ctx, DefaultRateLimitCleanupInterval)
	}
	s.logger.Info("starting API server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown marks the server as draining and waits for in-flight requests.
func (s *APIServer) Shutdown(ctx context.Context) error {
	if s.health != nil {
		s.health.SetShuttingDown()
	}
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *APIServer) Addr() string {
	return s.httpServer.Addr
}
