// Package config assembles the service configuration from defaults, an
// optional TOML file, the environment (including a .env file) and flags.
//
// Precedence, highest first: command-line flags, environment variables,
// the TOML file, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/teemow/sheetdash/internal/credentials"
	"github.com/teemow/sheetdash/internal/dashboard"
	"github.com/teemow/sheetdash/internal/records"
	"github.com/teemow/sheetdash/internal/sheets"
)

// DefaultSpreadsheetID is the dashboard spreadsheet read when none is configured.
const DefaultSpreadsheetID = "1jnPdM23eEXtY9uPWHwj8fOHAmCVg2I0LCta9kyYPBlo"

// Code provider names accepted in AUTH_CODE_PROVIDER.
const (
	CodeProviderPrompt   = "prompt"
	CodeProviderCallback = "callback"
)

// Config holds everything the serve, authorize and fetch commands need.
type Config struct {
	// HTTPAddr is the API listen address (default ":3001")
	HTTPAddr string

	ClientSecretFile string
	TokenFile        string
	// RedirectURL overrides the first redirect URI from the client secret file
	RedirectURL string

	SpreadsheetID     string
	ValueRenderOption string
	Layout            dashboard.Layout

	// StorageURL selects the record store, see records.Open
	StorageURL string

	// AuthCodeProvider is "prompt" (terminal) or "callback" (HTTP redirect)
	AuthCodeProvider string
	AuthTimeout      time.Duration
	FetchTimeout     time.Duration

	// RateLimitRPS is the per-client request rate for the API; 0 disables limiting
	RateLimitRPS   float64
	RateLimitBurst int

	SheetsRPS   float64
	SheetsBurst int

	MetricsEnabled bool
	MetricsAddr    string
}

// DefaultConfig returns the configuration from built-in defaults overlaid
// with environment variables.
func DefaultConfig() Config {
	addr := ":3001"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	storage := getEnvOrDefault("STORAGE_URL", "")
	if storage == "" {
		storage = getEnvOrDefault("MONGO_URI", records.DefaultStorageURL)
	}

	return Config{
		HTTPAddr:          getEnvOrDefault("HTTP_ADDR", addr),
		ClientSecretFile:  getEnvOrDefault("GOOGLE_CLIENT_SECRET_FILE", credentials.DefaultClientSecretFile),
		TokenFile:         getEnvOrDefault("GOOGLE_TOKEN_FILE", credentials.DefaultTokenFile),
		RedirectURL:       getEnvOrDefault("GOOGLE_REDIRECT_URL", ""),
		SpreadsheetID:     getEnvOrDefault("SPREADSHEET_ID", DefaultSpreadsheetID),
		ValueRenderOption: getEnvOrDefault("SHEETS_VALUE_RENDER_OPTION", sheets.RenderFormatted),
		Layout:            dashboard.DefaultLayout(),
		StorageURL:        storage,
		AuthCodeProvider:  getEnvOrDefault("AUTH_CODE_PROVIDER", CodeProviderPrompt),
		AuthTimeout:       getEnvDurationOrDefault("AUTH_TIMEOUT", credentials.DefaultAuthTimeout),
		FetchTimeout:      getEnvDurationOrDefault("FETCH_TIMEOUT", sheets.DefaultTimeout),
		RateLimitRPS:      getEnvFloatOrDefault("RATE_LIMIT_RPS", 5),
		RateLimitBurst:    getEnvIntOrDefault("RATE_LIMIT_BURST", 10),
		SheetsRPS:         getEnvFloatOrDefault("SHEETS_RATE_LIMIT_RPS", sheets.DefaultRequestsPerSecond),
		SheetsBurst:       getEnvIntOrDefault("SHEETS_RATE_LIMIT_BURST", sheets.DefaultBurst),
		MetricsEnabled:    getEnvBoolOrDefault("METRICS_ENABLED", true),
		MetricsAddr:       getEnvOrDefault("METRICS_ADDR", ":9090"),
	}
}

// LoadDotEnv loads variables from the given .env files (".env" when none
// are given) without overriding variables already set. Missing files are
// ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// fileConfig is the TOML file layout.
type fileConfig struct {
	SpreadsheetID     string           `toml:"spreadsheet_id"`
	ValueRenderOption string           `toml:"value_render_option"`
	StorageURL        string           `toml:"storage_url"`
	Layout            dashboard.Layout `toml:"layout"`
}

// LoadFile applies settings from a TOML file. Values already supplied by
// the environment win; layout ranges missing from the file keep their
// defaults.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.SpreadsheetID != "" && os.Getenv("SPREADSHEET_ID") == "" {
		c.SpreadsheetID = fc.SpreadsheetID
	}
	if fc.ValueRenderOption != "" && os.Getenv("SHEETS_VALUE_RENDER_OPTION") == "" {
		c.ValueRenderOption = fc.ValueRenderOption
	}
	if fc.StorageURL != "" && os.Getenv("STORAGE_URL") == "" && os.Getenv("MONGO_URI") == "" {
		c.StorageURL = fc.StorageURL
	}
	c.Layout = fc.Layout.Merge(c.Layout)
	return nil
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP address is required"))
	}
	if c.SpreadsheetID == "" {
		errs = append(errs, errors.New("spreadsheet ID is required"))
	}
	switch c.AuthCodeProvider {
	case CodeProviderPrompt, CodeProviderCallback:
	default:
		errs = append(errs, fmt.Errorf("invalid auth code provider %q, must be one of: prompt, callback", c.AuthCodeProvider))
	}
	switch c.ValueRenderOption {
	case sheets.RenderFormatted, sheets.RenderUnformatted, sheets.RenderFormula:
	default:
		errs = append(errs, fmt.Errorf("invalid value render option %q", c.ValueRenderOption))
	}
	if c.AuthTimeout <= 0 {
		errs = append(errs, errors.New("auth timeout must be positive"))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		errs = append(errs, errors.New("rate limit burst must be at least 1"))
	}
	if c.MetricsEnabled && c.MetricsAddr == "" {
		errs = append(errs, errors.New("metrics address is required when metrics are enabled"))
	}
	if err := c.Layout.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
