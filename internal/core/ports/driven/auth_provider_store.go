package driven

import (
	"context"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

// AuthProviderStore persists OAuth client applications.
// One client can be reused to log in multiple accounts.
type AuthProviderStore interface {
	// Save stores an auth provider. Creates if new, updates if exists.
	Save(ctx context.Context, provider domain.AuthProvider) error

	// Get retrieves an auth provider by ID.
	Get(ctx context.Context, id string) (*domain.AuthProvider, error)

	// List returns all auth providers.
	List(ctx context.Context) ([]domain.AuthProvider, error)

	// Delete removes an auth provider by ID.
	// Returns domain.ErrAuthProviderInUse if any account still uses it.
	Delete(ctx context.Context, id string) error
}
