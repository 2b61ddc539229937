package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

// CredentialsType identifies the kind of JSON file downloaded from the
// Google Cloud console.
type CredentialsType string

const (
	// CredentialsServiceAccount is a service account key.
	CredentialsServiceAccount CredentialsType = "service_account"
	// CredentialsInstalled is an OAuth client for desktop applications.
	CredentialsInstalled CredentialsType = "installed"
	// CredentialsWeb is an OAuth client for web applications.
	CredentialsWeb CredentialsType = "web"
	// CredentialsAuthorizedUser is a gcloud user credentials file.
	CredentialsAuthorizedUser CredentialsType = "authorized_user"
)

// ErrUnknownCredentials indicates the JSON is not a recognised credentials file.
var ErrUnknownCredentials = errors.New("google: unrecognised credentials file")

// DetectCredentialsType inspects a credentials JSON file.
func DetectCredentialsType(data []byte) (CredentialsType, error) {
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("%w: invalid JSON", ErrUnknownCredentials)
	}

	switch gjson.GetBytes(data, "type").String() {
	case string(CredentialsServiceAccount):
		return CredentialsServiceAccount, nil
	case string(CredentialsAuthorizedUser):
		return CredentialsAuthorizedUser, nil
	}

	if gjson.GetBytes(data, "installed.client_id").Exists() {
		return CredentialsInstalled, nil
	}
	if gjson.GetBytes(data, "web.client_id").Exists() {
		return CredentialsWeb, nil
	}
	return "", ErrUnknownCredentials
}

// OAuthConfigFromClientJSON extracts an OAuth client from an "installed" or
// "web" client secrets file.
func OAuthConfigFromClientJSON(data []byte, scopes []string) (*domain.OAuthProviderConfig, error) {
	kind, err := DetectCredentialsType(data)
	if err != nil {
		return nil, err
	}
	if kind != CredentialsInstalled && kind != CredentialsWeb {
		return nil, fmt.Errorf("%w: expected an OAuth client, got %s", ErrUnknownCredentials, kind)
	}

	root := gjson.GetBytes(data, string(kind))
	cfg := &domain.OAuthProviderConfig{
		ClientID:     root.Get("client_id").String(),
		ClientSecret: root.Get("client_secret").String(),
		AuthURL:      root.Get("auth_uri").String(),
		TokenURL:     root.Get("token_uri").String(),
		Scopes:       scopes,
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = TokenURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	return cfg, nil
}

// ServiceAccountEmail returns the client_email of a service account key.
func ServiceAccountEmail(key []byte) string {
	return gjson.GetBytes(key, "client_email").String()
}

// ServiceAccountTokenSource builds a JWT token source for a service account key.
// A non-empty subject impersonates that user through domain-wide delegation.
func ServiceAccountTokenSource(
	ctx context.Context, key []byte, subject string, scopes ...string,
) (oauth2.TokenSource, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes()
	}
	cfg, err := googleoauth.JWTConfigFromJSON(key, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	cfg.Subject = subject
	return cfg.TokenSource(ctx), nil
}

// OAuth2Config converts a stored OAuth client into an oauth2.Config.
func OAuth2Config(cfg *domain.OAuthProviderConfig, redirectURI string) *oauth2.Config {
	authURL, tokenURL := cfg.AuthURL, cfg.TokenURL
	if authURL == "" {
		authURL = AuthURL
	}
	if tokenURL == "" {
		tokenURL = TokenURL
	}
	if redirectURI == "" {
		redirectURI = cfg.RedirectURI
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
