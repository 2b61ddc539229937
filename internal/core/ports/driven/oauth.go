package driven

import (
	"context"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

// OAuthExchanger talks to the OAuth authorization server for the
// installed-app flow.
type OAuthExchanger interface {
	// AuthCodeURL builds the consent URL with state and the S256 PKCE
	// challenge derived from verifier.
	AuthCodeURL(cfg *domain.OAuthProviderConfig, redirectURI, state, verifier string) string

	// Exchange trades an authorization code for tokens.
	Exchange(
		ctx context.Context, cfg *domain.OAuthProviderConfig, redirectURI, code, verifier string,
	) (*domain.OAuthCredentials, error)

	// UserEmail returns the email address of the token's owner.
	UserEmail(ctx context.Context, accessToken string) (string, error)
}

// CallbackServer receives the OAuth redirect on a loopback port.
type CallbackServer interface {
	// Start begins listening.
	Start() error

	// RedirectURI is the URI registered with the authorization request.
	RedirectURI() string

	// WaitForCode blocks until the redirect arrives or ctx is done.
	WaitForCode(ctx context.Context) (string, error)

	// Stop shuts the server down.
	Stop() error
}

// CallbackServerFactory creates a callback server on port that accepts
// only redirects carrying state.
type CallbackServerFactory func(port int, state string) CallbackServer
