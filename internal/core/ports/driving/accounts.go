package driving

import (
	"context"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

// LoginCallbacks lets the caller take part in the interactive OAuth flow.
type LoginCallbacks struct {
	// OnAuthURL is called with the consent URL before waiting for the callback.
	// Returning an error aborts the login.
	OnAuthURL func(authURL string) error
}

// AccountService manages OAuth clients, accounts and the default account.
type AccountService interface {
	// AddOAuthClient stores an OAuth client application.
	AddOAuthClient(ctx context.Context, name string, cfg domain.OAuthProviderConfig) (*domain.AuthProvider, error)

	// ListOAuthClients returns every stored OAuth client.
	ListOAuthClients(ctx context.Context) ([]domain.AuthProvider, error)

	// RemoveOAuthClient deletes an OAuth client that no account uses.
	RemoveOAuthClient(ctx context.Context, id string) error

	// AddServiceAccount stores a service account from its JSON key.
	// subject, when set, is impersonated through domain-wide delegation.
	AddServiceAccount(ctx context.Context, key []byte, subject string, scopes []string) (*domain.Account, error)

	// Login runs the installed-app OAuth flow against a stored client and
	// saves the resulting account and tokens.
	Login(ctx context.Context, providerID string, callbacks LoginCallbacks) (*domain.Account, error)

	// List returns every account.
	List(ctx context.Context) ([]domain.Account, error)

	// Resolve finds an account by ID or name. An empty reference resolves
	// to the default account.
	Resolve(ctx context.Context, ref string) (*domain.Account, error)

	// Remove deletes an account and its tokens.
	Remove(ctx context.Context, ref string) error

	// SetDefault marks an account as the default.
	SetDefault(ctx context.Context, ref string) error

	// Default returns the ID of the default account, or empty string.
	Default() string
}
