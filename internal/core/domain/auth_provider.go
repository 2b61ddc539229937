package domain

import "time"

// AuthProvider represents a reusable OAuth client application.
// One client can be used to log in several Google accounts.
type AuthProvider struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`
	// Name is the user-friendly name (e.g., "My Google App").
	Name string `json:"name"`

	// OAuth holds the OAuth application credentials.
	OAuth *OAuthProviderConfig `json:"oauth,omitempty"`

	// CreatedAt is when the provider was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the provider was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// OAuthProviderConfig stores OAuth application credentials.
// These are the client credentials from the Google Cloud console.
type OAuthProviderConfig struct {
	// ClientID is the OAuth client ID from the developer console.
	ClientID string `json:"client_id"`
	// ClientSecret is the OAuth client secret from the developer console.
	ClientSecret string `json:"client_secret"`
	// Scopes are the OAuth scopes to request.
	Scopes []string `json:"scopes"`
	// AuthURL is the authorization endpoint (optional override).
	AuthURL string `json:"auth_url,omitempty"`
	// TokenURL is the token exchange endpoint (optional override).
	TokenURL string `json:"token_url,omitempty"`
	// RedirectURI is the callback URI (default: http://localhost:PORT/callback).
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// IsOAuth returns true if this provider carries a usable OAuth client.
func (p *AuthProvider) IsOAuth() bool {
	return p.OAuth != nil && p.OAuth.ClientID != ""
}
