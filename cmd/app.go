package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/sheetdash/internal/config"
	"github.com/teemow/sheetdash/internal/credentials"
	"github.com/teemow/sheetdash/internal/instrumentation"
	"github.com/teemow/sheetdash/internal/records"
	"github.com/teemow/sheetdash/internal/service"
	"github.com/teemow/sheetdash/internal/sheets"
)

// app holds the components shared by the serve, authorize and fetch commands.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
	tokens   *credentials.FileStore
	manager  *credentials.Manager
	fetcher  *sheets.Fetcher
	store    records.Store
	service  *service.Service
}

// loadConfig resolves the configuration: defaults and environment, then
// the optional TOML file, then any flags set on cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		if err := cfg.LoadFile(configFile); err != nil {
			return cfg, err
		}
	}
	applyFlags(cmd, &cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyFlags copies explicitly set flags over cfg. Flags a command does not
// define are skipped.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	str("spreadsheet-id", &cfg.SpreadsheetID)
	str("client-secret", &cfg.ClientSecretFile)
	str("token-file", &cfg.TokenFile)
	str("redirect-url", &cfg.RedirectURL)
	str("storage-url", &cfg.StorageURL)
	str("http-addr", &cfg.HTTPAddr)
	str("auth-code-provider", &cfg.AuthCodeProvider)
	str("metrics-addr", &cfg.MetricsAddr)

	if f := flags.Lookup("metrics-enabled"); f != nil && f.Changed {
		cfg.MetricsEnabled, _ = flags.GetBool("metrics-enabled")
	}
	if f := flags.Lookup("rate-limit"); f != nil && f.Changed {
		cfg.RateLimitRPS, _ = flags.GetFloat64("rate-limit")
	}
}

// addCredentialFlags registers the flags every command that talks to
// Google needs.
func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().String("spreadsheet-id", "", "Spreadsheet to read. Can also use SPREADSHEET_ID env var.")
	cmd.Flags().String("client-secret", "", "Google client secret JSON file. Can also use GOOGLE_CLIENT_SECRET_FILE env var.")
	cmd.Flags().String("token-file", "", "Persisted OAuth token file. Can also use GOOGLE_TOKEN_FILE env var.")
	cmd.Flags().String("redirect-url", "", "OAuth redirect URL, overriding the client secret file. Can also use GOOGLE_REDIRECT_URL env var.")
}

// newApp wires the pipeline. codes receives authorization codes when no
// valid token is stored. The record store is opened only when openStore is set.
func newApp(ctx context.Context, cfg config.Config, codes credentials.CodeProvider, openStore bool) (*app, error) {
	logger := slog.Default()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if !cfg.MetricsEnabled {
		instrConfig.Enabled = false
	}
	if err := instrConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instrumentation configuration: %w", err)
	}
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	metrics := provider.Metrics()

	a := &app{cfg: cfg, logger: logger, provider: provider}

	oauthConfig, err := credentials.LoadClientConfig(cfg.ClientSecretFile, cfg.RedirectURL)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	a.tokens = credentials.NewFileStore(cfg.TokenFile)
	a.manager = credentials.NewManager(oauthConfig, a.tokens, codes,
		credentials.WithLogger(logger),
		credentials.WithMetrics(metrics),
		credentials.WithAuthTimeout(cfg.AuthTimeout))

	a.fetcher = sheets.NewFetcher(cfg.SpreadsheetID,
		sheets.WithTimeout(cfg.FetchTimeout),
		sheets.WithValueRenderOption(cfg.ValueRenderOption),
		sheets.WithRateLimiter(sheets.NewRateLimiter(cfg.SheetsRPS, cfg.SheetsBurst)),
		sheets.WithMetrics(metrics),
		sheets.WithLogger(logger))

	var gateway service.RecordGateway
	if openStore {
		a.store, err = records.Open(ctx, cfg.StorageURL)
		if err != nil {
			_ = provider.Shutdown(ctx)
			return nil, err
		}
		gateway = records.NewGateway(a.store,
			records.WithMetrics(metrics),
			records.WithLogger(logger))
		logger.Info("record store opened", "backend", a.store.Backend())
	}

	a.service = service.New(a.manager, a.fetcher, gateway, cfg.Layout, logger)
	return a, nil
}

// Close releases the record store and flushes telemetry.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close record store: %w", err))
		}
	}
	if err := a.provider.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// promptCodes asks for the authorization code on the terminal.
func promptCodes() credentials.CodeProvider {
	return &credentials.PromptCodeProvider{In: os.Stdin, Out: os.Stderr}
}
