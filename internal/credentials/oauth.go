package credentials

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// DefaultClientSecretFile is the client identity downloaded from the Google
// Cloud console.
const DefaultClientSecretFile = "config/client_secret.json"

// DefaultScopes grants read-only access to spreadsheets.
var DefaultScopes = []string{sheets.SpreadsheetsReadonlyScope}

// LoadClientConfig reads a client secret file (either the "installed" or the
// "web" layout) and returns the OAuth2 config for it. The first redirect URI
// in the file is used unless redirectURL is set.
func LoadClientConfig(path, redirectURL string, scopes ...string) (*oauth2.Config, error) {
	if path == "" {
		path = DefaultClientSecretFile
	}
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret file %s: %w", path, err)
	}

	if redirectURL != "" {
		config.RedirectURL = redirectURL
	}
	return config, nil
}
