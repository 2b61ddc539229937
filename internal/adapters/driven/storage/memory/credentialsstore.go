package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
)

// Ensure CredentialsStore implements the interface.
var _ driven.CredentialsStore = (*CredentialsStore)(nil)

// CredentialsStore is an in-memory implementation of driven.CredentialsStore.
type CredentialsStore struct {
	mu    sync.RWMutex
	creds map[string]domain.Credentials
}

// NewCredentialsStore creates a new in-memory credentials store.
func NewCredentialsStore() *CredentialsStore {
	return &CredentialsStore{
		creds: make(map[string]domain.Credentials),
	}
}

// Save stores or updates credentials. An account holds at most one set, so
// saving replaces any other credentials of the same account.
func (s *CredentialsStore) Save(_ context.Context, creds domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.creds {
		if id != creds.ID && existing.AccountID == creds.AccountID {
			delete(s.creds, id)
		}
	}
	s.creds[creds.ID] = cloneCredentials(creds)
	return nil
}

// Get retrieves credentials by ID.
func (s *CredentialsStore) Get(_ context.Context, id string) (*domain.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creds, ok := s.creds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneCredentials(creds)
	return &out, nil
}

// GetByAccountID retrieves credentials for an account, or nil when there are none.
func (s *CredentialsStore) GetByAccountID(_ context.Context, accountID string) (*domain.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, creds := range s.creds {
		if creds.AccountID == accountID {
			out := cloneCredentials(creds)
			return &out, nil
		}
	}
	return nil, nil
}

// Delete removes credentials by ID.
func (s *CredentialsStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, id)
	return nil
}

func (s *CredentialsStore) deleteByAccount(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, creds := range s.creds {
		if creds.AccountID == accountID {
			delete(s.creds, id)
		}
	}
}

// cloneCredentials copies the token struct so callers cannot mutate stored state.
func cloneCredentials(c domain.Credentials) domain.Credentials {
	if c.OAuth != nil {
		oauth := *c.OAuth
		c.OAuth = &oauth
	}
	return c
}
