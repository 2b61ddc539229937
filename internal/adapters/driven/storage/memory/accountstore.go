package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
)

// Ensure AccountStore implements the interface.
var _ driven.AccountStore = (*AccountStore)(nil)

// AccountStore is an in-memory implementation of driven.AccountStore.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
	creds    *CredentialsStore
}

// NewAccountStore creates a new in-memory account store. Deleting an account
// also deletes its credentials from creds when creds is not nil.
func NewAccountStore(creds *CredentialsStore) *AccountStore {
	return &AccountStore{
		accounts: make(map[string]domain.Account),
		creds:    creds,
	}
}

// Save stores or updates an account. Names are unique, case-insensitively.
func (s *AccountStore) Save(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.accounts {
		if id != account.ID && strings.EqualFold(existing.Name, account.Name) {
			return domain.ErrAlreadyExists
		}
	}
	s.accounts[account.ID] = account
	return nil
}

// Get retrieves an account by ID.
func (s *AccountStore) Get(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &account, nil
}

// GetByName retrieves an account by name, case-insensitively.
func (s *AccountStore) GetByName(_ context.Context, name string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if strings.EqualFold(account.Name, name) {
			return &account, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns all accounts ordered by name.
func (s *AccountStore) List(_ context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Delete removes an account and its credentials.
func (s *AccountStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.accounts, id)
	s.mu.Unlock()

	if s.creds != nil {
		s.creds.deleteByAccount(id)
	}
	return nil
}

// usesProvider reports whether any account is linked to the provider.
func (s *AccountStore) usesProvider(providerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if account.AuthProviderID == providerID {
			return true
		}
	}
	return false
}
