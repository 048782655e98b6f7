package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/sheetdash/internal/config"
	"github.com/teemow/sheetdash/internal/credentials"
	"github.com/teemow/sheetdash/internal/server"
)

// metricsShutdownTimeout bounds the metrics server drain.
const metricsShutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var trustProxy bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard HTTP API",
		Long: `Start the HTTP API that serves the dashboard.

Routes:
  GET  /api/sheet-data       structured dashboard
  POST /api/sheet-data/save  store the rows of the save range
  GET  /api/sheet-data/all   list stored rows
  (the same routes are served under /sheet-data without the /api prefix)
  GET  /auth/status          authorization state
  GET  /oauth2/callback      OAuth redirect target (callback code provider)

Authorization:
  When no valid token is stored, the first request that needs Google starts
  the authorization-code grant. With --auth-code-provider=prompt (default) the
  consent URL is printed and the code is read from the terminal. With
  --auth-code-provider=callback the consent URL is logged and reported by
  /auth/status, and Google redirects the code to /oauth2/callback. Register
  that path as the redirect URI of the OAuth client.

Storage:
  --storage-url selects the record store: sqlite://path (default),
  postgres://..., or memory://. MONGO_URI is accepted as an alias of
  STORAGE_URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cfg, trustProxy)
		},
	}

	addCredentialFlags(cmd)
	cmd.Flags().String("http-addr", "", "API listen address. Can also use HTTP_ADDR or PORT env vars. (default \":3001\")")
	cmd.Flags().String("storage-url", "", "Record store URL. Can also use STORAGE_URL env var.")
	cmd.Flags().String("auth-code-provider", "", "How the authorization code is obtained: prompt or callback. Can also use AUTH_CODE_PROVIDER env var.")
	cmd.Flags().Float64("rate-limit", 0, "Requests per second allowed per client IP, 0 disables. Can also use RATE_LIMIT_RPS env var.")
	cmd.Flags().BoolVar(&trustProxy, "trust-proxy", false, "Take the client IP from X-Forwarded-For / X-Real-IP")
	cmd.Flags().Bool("metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().String("metrics-addr", "", "Metrics server address. Can also use METRICS_ADDR env var. (default \":9090\")")

	return cmd
}

func runServe(cfg config.Config, trustProxy bool) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		codes    credentials.CodeProvider
		callback *credentials.CallbackCodeProvider
	)
	switch cfg.AuthCodeProvider {
	case config.CodeProviderCallback:
		callback = credentials.NewCallbackCodeProvider(slog.Default())
		codes = callback
	default:
		codes = promptCodes()
	}

	a, err := newApp(shutdownCtx, cfg, codes, true)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(ctx); err != nil {
			slog.Error("error during shutdown", "error", err)
		}
	}()

	// Start metrics server if enabled
	var metricsServer *server.MetricsServer
	if cfg.MetricsEnabled && a.provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			InstrumentationProvider: a.provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case err := <-metricsErr:
			if err != nil {
				return fmt.Errorf("metrics server failed to start: %w", err)
			}
		case <-time.After(100 * time.Millisecond):
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				slog.Error("error during metrics server shutdown", "error", err)
			}
		}()
	}

	health := server.NewHealthChecker(a.store, a.manager)
	limiter := server.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	apiConfig := server.APIConfig{
		Pipeline:    a.service,
		Auth:        a.manager,
		Health:      health,
		Metrics:     a.provider.Metrics(),
		RateLimiter: limiter,
		TrustProxy:  trustProxy,
		Logger:      slog.Default(),
	}
	if callback != nil {
		// Assigned only when set so the interface stays nil otherwise.
		apiConfig.Callback = callback
	}

	apiServer := server.NewAPIServer(cfg.HTTPAddr, server.NewHandler(apiConfig), health, limiter, slog.Default())

	slog.Info("serving dashboard",
		"spreadsheet", cfg.SpreadsheetID,
		"auth_code_provider", cfg.AuthCodeProvider,
		"auth_state", a.manager.State().String())

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := apiServer.Start(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-shutdownCtx.Done():
		slog.Info("shutdown signal received, draining requests")
	}

	ctx, cancelDrain := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancelDrain()
	if err := apiServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	return nil
}
