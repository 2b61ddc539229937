package driven

import (
	"context"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

// AccountStore persists the accounts gapps can act as.
type AccountStore interface {
	// Save stores an account. Creates if new, updates if exists.
	Save(ctx context.Context, account domain.Account) error

	// Get retrieves an account by ID.
	Get(ctx context.Context, id string) (*domain.Account, error)

	// GetByName retrieves an account by its name (usually an email address).
	GetByName(ctx context.Context, name string) (*domain.Account, error)

	// List returns all accounts ordered by name.
	List(ctx context.Context) ([]domain.Account, error)

	// Delete removes an account and its credentials.
	Delete(ctx context.Context, id string) error
}
