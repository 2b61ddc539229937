package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
)

// Ensure AuthProviderStore implements the interface.
var _ driven.AuthProviderStore = (*AuthProviderStore)(nil)

// AuthProviderStore is an in-memory implementation of driven.AuthProviderStore.
type AuthProviderStore struct {
	mu        sync.RWMutex
	providers map[string]domain.AuthProvider
	accounts  *AccountStore
}

// NewAuthProviderStore creates a new in-memory auth provider store. Deletes
// are refused while an account in accounts still uses the provider.
func NewAuthProviderStore(accounts *AccountStore) *AuthProviderStore {
	return &AuthProviderStore{
		providers: make(map[string]domain.AuthProvider),
		accounts:  accounts,
	}
}

// Save stores or updates a provider.
func (s *AuthProviderStore) Save(_ context.Context, provider domain.AuthProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[provider.ID] = provider
	return nil
}

// Get retrieves a provider by ID.
func (s *AuthProviderStore) Get(_ context.Context, id string) (*domain.AuthProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	provider, ok := s.providers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &provider, nil
}

// List returns all providers ordered by name.
func (s *AuthProviderStore) List(_ context.Context) ([]domain.AuthProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.AuthProvider, 0, len(s.providers))
	for _, p := range s.providers {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Delete removes a provider.
func (s *AuthProviderStore) Delete(_ context.Context, id string) error {
	if s.accounts != nil && s.accounts.usesProvider(id) {
		return domain.ErrAuthProviderInUse
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.providers, id)
	return nil
}

// Stores bundles linked in-memory stores.
type Stores struct {
	Providers   *AuthProviderStore
	Accounts    *AccountStore
	Credentials *CredentialsStore
}

// NewStores creates provider, account and credentials stores that enforce
// the same relationships as the SQLite store.
func NewStores() *Stores {
	creds := NewCredentialsStore()
	accounts := NewAccountStore(creds)
	return &Stores{
		Providers:   NewAuthProviderStore(accounts),
		Accounts:    accounts,
		Credentials: creds,
	}
}
