package auth

import (
	"context"
	"fmt"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
)

// Factory creates TokenProviders for stored accounts.
type Factory struct {
	credentialsStore  driven.CredentialsStore
	authProviderStore driven.AuthProviderStore
}

// NewFactory creates a token provider factory.
func NewFactory(
	credentialsStore driven.CredentialsStore,
	authProviderStore driven.AuthProviderStore,
) *Factory {
	return &Factory{
		credentialsStore:  credentialsStore,
		authProviderStore: authProviderStore,
	}
}

// CreateTokenProvider creates the appropriate TokenProvider for an account.
func (f *Factory) CreateTokenProvider(ctx context.Context, account *domain.Account) (driven.TokenProvider, error) {
	if account == nil {
		return nil, domain.ErrAuthRequired
	}

	switch account.Method {
	case domain.AuthMethodServiceAccount:
		if len(account.ServiceAccountKey) == 0 {
			return nil, fmt.Errorf("account %s has no service account key: %w", account.Name, domain.ErrAuthInvalid)
		}
		return NewServiceAccountProvider(account), nil

	case domain.AuthMethodOAuth:
		if account.AuthProviderID == "" {
			return nil, fmt.Errorf("account %s has no OAuth client: %w", account.Name, domain.ErrAuthInvalid)
		}
		creds, err := f.credentialsStore.GetByAccountID(ctx, account.ID)
		if err != nil {
			return nil, fmt.Errorf("get credentials for %s: %w", account.Name, err)
		}
		if creds == nil || !creds.IsAuthenticated() {
			return nil, fmt.Errorf("account %s is not logged in: %w", account.Name, domain.ErrAuthRequired)
		}
		return NewCredentialsOAuthProvider(
			account.ID,
			f.credentialsStore,
			account.AuthProviderID,
			f.authProviderStore,
		), nil

	default:
		return nil, fmt.Errorf("auth method %q: %w", account.Method, domain.ErrUnsupportedType)
	}
}
