package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/sheetdash/internal/credentials"
	"github.com/teemow/sheetdash/internal/records"
)

const testClientSecret = `{
  "installed": {
    "client_id": "client-id.apps.googleusercontent.com",
    "client_secret": "client-secret",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["http://localhost:3001/oauth2/callback"]
  }
}`

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "HTTP_ADDR", "SPREADSHEET_ID", "STORAGE_URL", "MONGO_URI",
		"GOOGLE_CLIENT_SECRET_FILE", "GOOGLE_TOKEN_FILE", "AUTH_CODE_PROVIDER",
		"METRICS_ENABLED", "METRICS_ADDR", "RATE_LIMIT_RPS",
	} {
		t.Setenv(key, "")
	}
}

func withConfigFile(t *testing.T, path string) {
	t.Helper()
	old := configFile
	configFile = path
	t.Cleanup(func() { configFile = old })
}

func TestLoadConfig_Precedence(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("STORAGE_URL", "sqlite://from-env.db")

	path := filepath.Join(t.TempDir(), "sheetdash.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
spreadsheet_id = "from-file"
storage_url = "sqlite://from-file.db"
`), 0600))
	withConfigFile(t, path)

	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--http-addr", ":8080", "--auth-code-provider", "callback"}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.SpreadsheetID)
	assert.Equal(t, "sqlite://from-env.db", cfg.StorageURL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "callback", cfg.AuthCodeProvider)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SPREADSHEET_ID", "from-env")
	withConfigFile(t, "")

	cmd := newFetchCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--spreadsheet-id", "from-flag", "--storage-url", "memory://"}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.SpreadsheetID)
	assert.Equal(t, "memory://", cfg.StorageURL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearConfigEnv(t)
	withConfigFile(t, "")

	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--auth-code-provider", "smoke-signal"}))

	_, err := loadConfig(cmd)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestApplyFlags_IgnoresUnsetAndUndefined(t *testing.T) {
	clearConfigEnv(t)
	withConfigFile(t, "")

	cmd := &cobra.Command{Use: "bare"}
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, ":3001", cfg.HTTPAddr)

	cmd = newServeCmd()
	require.NoError(t, cmd.ParseFlags(nil))
	cfg, err = loadConfig(cmd)
	require.NoError(t, err)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestNewApp(t *testing.T) {
	clearConfigEnv(t)
	withConfigFile(t, "")
	dir := t.TempDir()
	secret := filepath.Join(dir, "client_secret.json")
	require.NoError(t, os.WriteFile(secret, []byte(testClientSecret), 0600))

	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--client-secret", secret,
		"--token-file", filepath.Join(dir, "token.json"),
		"--storage-url", "memory://",
	}))
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	cfg.MetricsEnabled = false

	a, err := newApp(context.Background(), cfg, credentials.CodeProviderFunc(
		func(context.Context, string, string) (string, error) { return "", nil }), true)
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.Equal(t, credentials.StateNoToken, a.manager.State())
	assert.Equal(t, filepath.Join(dir, "token.json"), a.tokens.Path())
	assert.Equal(t, cfg.SpreadsheetID, a.fetcher.SpreadsheetID())
	require.NotNil(t, a.store)
	assert.Equal(t, "memory", a.store.Backend())

	all, err := a.service.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNewApp_MissingClientSecret(t *testing.T) {
	clearConfigEnv(t)
	withConfigFile(t, "")

	cmd := newFetchCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--client-secret", filepath.Join(t.TempDir(), "missing.json")}))
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	cfg.MetricsEnabled = false

	_, err = newApp(context.Background(), cfg, nil, false)
	assert.ErrorContains(t, err, "client secret")
}

func TestNewApp_UnsupportedStorage(t *testing.T) {
	clearConfigEnv(t)
	withConfigFile(t, "")
	secret := filepath.Join(t.TempDir(), "client_secret.json")
	require.NoError(t, os.WriteFile(secret, []byte(testClientSecret), 0600))

	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--client-secret", secret, "--storage-url", "mongodb://localhost/sheets"}))
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	cfg.MetricsEnabled = false

	_, err = newApp(context.Background(), cfg, nil, true)
	var storageErr *records.StorageError
	assert.ErrorAs(t, err, &storageErr)
}

func TestVersionCmd(t *testing.T) {
	old := version
	version = "1.2.3"
	t.Cleanup(func() { version = old })

	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)

	assert.Equal(t, "sheetdash version 1.2.3\n", out.String())
}

func TestGenerateCommandsMarkdown(t *testing.T) {
	markdown := generateCommandsMarkdown(rootCmd)

	assert.True(t, strings.HasPrefix(markdown, "# CLI Reference"))
	for _, section := range []string{"## sheetdash serve", "## sheetdash authorize", "## sheetdash fetch", "## sheetdash version"} {
		assert.Contains(t, markdown, section)
	}
	assert.NotContains(t, markdown, "## sheetdash generate-docs")
	assert.Contains(t, markdown, "`--force` (bool)")
	assert.Contains(t, markdown, "`--log-format` (string)")
	assert.Contains(t, markdown, "- [sheetdash serve](#sheetdash-serve)")
}
