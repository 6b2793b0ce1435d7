package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cafereport/internal/log"
)

const testOAuthClient = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func TestCredentialsOption_NoneConfigured(t *testing.T) {
	_, err := credentialsOption(context.Background(), Options{}, log.Discard())
	if !errors.Is(err, errNoCredentials) {
		t.Fatalf("expected errNoCredentials, got %v", err)
	}
}

func TestCredentialsOption_OAuthWithoutToken(t *testing.T) {
	_, err := credentialsOption(context.Background(), Options{OAuthClientJSON: testOAuthClient}, log.Discard())
	if !errors.Is(err, errNoCredentials) {
		t.Fatalf("expected errNoCredentials, got %v", err)
	}
}

func TestCredentialsOption_MissingTokenFile(t *testing.T) {
	opts := Options{
		OAuthClientJSON: testOAuthClient,
		OAuthTokenFile:  filepath.Join(t.TempDir(), "absent.json"),
	}
	_, err := credentialsOption(context.Background(), opts, log.Discard())
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestCredentialsOption_OAuthToken(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(tokenPath, []byte(`{"refresh_token":"r"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	opt, err := credentialsOption(context.Background(), Options{
		OAuthClientJSON: testOAuthClient,
		OAuthTokenFile:  tokenPath,
	}, log.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt == nil {
		t.Fatal("expected a client option")
	}
}

func TestCredentialsOption_EmptyToken(t *testing.T) {
	_, err := credentialsOption(context.Background(), Options{
		OAuthClientJSON: testOAuthClient,
		OAuthTokenJSON:  `{}`,
	}, log.Discard())
	if err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestCredentialsOption_ServiceAccountWins(t *testing.T) {
	opt, err := credentialsOption(context.Background(), Options{
		CredentialsJSON: `{"type":"service_account"}`,
		OAuthClientJSON: "not json",
	}, log.Discard())
	if err != nil || opt == nil {
		t.Fatalf("expected service account option, got %v", err)
	}
}
