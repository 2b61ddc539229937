package driven

import (
	"context"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

// TokenProvider provides access tokens for authenticated API calls.
// Implementations handle token refresh transparently.
type TokenProvider interface {
	// GetToken returns a valid access token.
	// If the current token is expired, it will be refreshed automatically.
	GetToken(ctx context.Context) (string, error)

	// AccountID returns the account the tokens belong to.
	// Returns empty string for ad-hoc tokens.
	AccountID() string

	// AuthMethod returns the authentication method.
	AuthMethod() domain.AuthMethod

	// IsAuthenticated returns true if valid authentication is available.
	IsAuthenticated() bool
}

// TokenProviderFactory creates a TokenProvider for a stored account.
type TokenProviderFactory interface {
	CreateTokenProvider(ctx context.Context, account *domain.Account) (TokenProvider, error)
}
