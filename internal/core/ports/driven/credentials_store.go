package driven

import (
	"context"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

// CredentialsStore persists OAuth tokens.
// Credentials are tied to a specific account (1:1 relationship).
type CredentialsStore interface {
	// Save stores credentials. Creates if new, updates if exists.
	Save(ctx context.Context, creds domain.Credentials) error

	// Get retrieves credentials by ID.
	Get(ctx context.Context, id string) (*domain.Credentials, error)

	// GetByAccountID retrieves credentials for a specific account.
	// Returns nil if no credentials exist for the account.
	GetByAccountID(ctx context.Context, accountID string) (*domain.Credentials, error)

	// Delete removes credentials by ID.
	Delete(ctx context.Context, id string) error
}
