package auth

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
)

// Ensure ServiceAccountProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*ServiceAccountProvider)(nil)

// ServiceAccountProvider mints tokens from a service account key using the
// JWT bearer flow. Tokens are cached until shortly before expiry.
type ServiceAccountProvider struct {
	accountID string
	key       []byte
	subject   string
	scopes    []string

	mu     sync.Mutex
	source oauth2.TokenSource
}

// NewServiceAccountProvider creates a token provider for a service account.
func NewServiceAccountProvider(account *domain.Account) *ServiceAccountProvider {
	return &ServiceAccountProvider{
		accountID: account.ID,
		key:       account.ServiceAccountKey,
		subject:   account.Subject,
		scopes:    account.Scopes,
	}
}

// GetToken returns a valid access token.
func (p *ServiceAccountProvider) GetToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.source == nil {
		source, err := google.ServiceAccountTokenSource(ctx, p.key, p.subject, p.scopes...)
		if err != nil {
			p.mu.Unlock()
			return "", fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
		}
		p.source = oauth2.ReuseTokenSource(nil, source)
	}
	source := p.source
	p.mu.Unlock()

	token, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTokenRefreshFailed, err)
	}
	return token.AccessToken, nil
}

// AccountID returns the account the tokens belong to.
func (p *ServiceAccountProvider) AccountID() string {
	return p.accountID
}

// AuthMethod returns AuthMethodServiceAccount.
func (p *ServiceAccountProvider) AuthMethod() domain.AuthMethod {
	return domain.AuthMethodServiceAccount
}

// IsAuthenticated returns true if the key looks like a service account key.
func (p *ServiceAccountProvider) IsAuthenticated() bool {
	return google.ServiceAccountEmail(p.key) != ""
}
