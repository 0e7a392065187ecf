package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrCredentialsNotFound indicates that no OAuth client credentials were
// configured. It is fatal at startup.
var ErrCredentialsNotFound = errors.New("oauth client credentials not found")

// ClientCredentials describes where the OAuth client comes from. A
// credentials file (Google client secrets JSON) wins over the explicit ID
// and secret.
type ClientCredentials struct {
	CredentialsFile string
	ClientID        string
	ClientSecret    string
}

// NewConfig builds the OAuth2 config for the given redirect URL and scopes.
func NewConfig(creds ClientCredentials, redirectURL string, scopes ...string) (*oauth2.Config, error) {
	if creds.CredentialsFile != "" {
		raw, err := os.ReadFile(creds.CredentialsFile)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: file %s does not exist, download it from the Google Cloud Console",
					ErrCredentialsNotFound, creds.CredentialsFile)
			}
			return nil, fmt.Errorf("os.ReadFile failed: %w", err)
		}

		cfg, err := google.ConfigFromJSON(raw, scopes...)
		if err != nil {
			return nil, fmt.Errorf("google.ConfigFromJSON failed: %w", err)
		}
		if redirectURL != "" {
			cfg.RedirectURL = redirectURL
		}

		return cfg, nil
	}

	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: set a credentials file or OAUTH_GOOGLE_CLIENT_ID and OAUTH_GOOGLE_CLIENT_SECRET",
			ErrCredentialsNotFound)
	}

	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		Endpoint:     google.Endpoint,
	}, nil
}
