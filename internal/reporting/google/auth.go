package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cafereport/internal/log"
)

var errNoCredentials = errors.New("missing Google credentials (set GOOGLE_SERVICE_ACCOUNT_JSON/FILE or GOOGLE_OAUTH_CLIENT_* with GOOGLE_OAUTH_TOKEN_*)")

// credentialsOption picks the service account when one is configured and
// falls back to an OAuth client plus a stored user token.
func credentialsOption(ctx context.Context, opts Options, logger *log.Logger) (goption.ClientOption, error) {
	saJSON, err := readInlineOrFile(opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}
	if saJSON != nil {
		logger.DebugContext(ctx, "Using service account credentials")
		return goption.WithCredentialsJSON(saJSON), nil
	}

	clientJSON, err := readInlineOrFile(opts.OAuthClientJSON, opts.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	tokenJSON, err := readInlineOrFile(opts.OAuthTokenJSON, opts.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if clientJSON == nil || tokenJSON == nil {
		return nil, errNoCredentials
	}

	cfg, err := OAuthConfig(clientJSON)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, errors.New("oauth token has neither an access nor a refresh token")
	}

	logger.DebugContext(ctx, "Using OAuth user credentials")
	return goption.WithTokenSource(cfg.TokenSource(ctx, &tok)), nil
}

// OAuthConfig builds the OAuth client config for the Sheets scope from a
// downloaded client secret.
func OAuthConfig(clientJSON []byte) (*oauth2.Config, error) {
	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}
	return cfg, nil
}

// readInlineOrFile returns inline when set, otherwise the contents of path.
// Both empty yields nil.
func readInlineOrFile(inline, path string) ([]byte, error) {
	if strings.TrimSpace(inline) != "" {
		return []byte(inline), nil
	}
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}
