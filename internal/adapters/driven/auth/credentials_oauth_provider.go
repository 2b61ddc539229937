package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
	"github.com/custodia-labs/gapps-cli/internal/logger"
)

// Ensure CredentialsOAuthProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*CredentialsOAuthProvider)(nil)

// DefaultRefreshBuffer is how long before expiry a token is refreshed.
const DefaultRefreshBuffer = 5 * time.Minute

// CredentialsOAuthProvider provides OAuth access tokens for a logged-in
// account, refreshing and persisting them when they near expiry.
type CredentialsOAuthProvider struct {
	accountID         string
	credentialsStore  driven.CredentialsStore
	authProviderID    string
	authProviderStore driven.AuthProviderStore

	mu            sync.RWMutex
	cachedToken   string
	cacheExpiry   time.Time
	refreshBuffer time.Duration
}

// NewCredentialsOAuthProvider creates a token provider for an OAuth account.
func NewCredentialsOAuthProvider(
	accountID string,
	credentialsStore driven.CredentialsStore,
	authProviderID string,
	authProviderStore driven.AuthProviderStore,
) *CredentialsOAuthProvider {
	return &CredentialsOAuthProvider{
		accountID:         accountID,
		credentialsStore:  credentialsStore,
		authProviderID:    authProviderID,
		authProviderStore: authProviderStore,
		refreshBuffer:     DefaultRefreshBuffer,
	}
}

// GetToken returns a valid access token, refreshing if necessary.
//
//nolint:nestif // Token refresh with necessary concurrency checks
func (p *CredentialsOAuthProvider) GetToken(ctx context.Context) (string, error) {
	// Fast path: check cache with read lock
	p.mu.RLock()
	if p.cachedToken != "" && time.Now().Before(p.cacheExpiry) {
		token := p.cachedToken
		p.mu.RUnlock()
		return token, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if p.cachedToken != "" && time.Now().Before(p.cacheExpiry) {
		return p.cachedToken, nil
	}

	creds, err := p.credentialsStore.GetByAccountID(ctx, p.accountID)
	if err != nil {
		return "", fmt.Errorf("get credentials: %w", err)
	}
	if creds == nil || creds.OAuth == nil {
		return "", domain.ErrAuthRequired
	}

	needsRefresh := creds.OAuth.IsExpired()
	if !creds.OAuth.Expiry.IsZero() {
		needsRefresh = needsRefresh || time.Until(creds.OAuth.Expiry) < p.refreshBuffer
	}

	if needsRefresh {
		if creds.OAuth.RefreshToken == "" {
			if creds.OAuth.IsExpired() {
				return "", domain.ErrAuthExpired
			}
		} else {
			token, err := p.refresh(ctx, creds.OAuth.RefreshToken)
			if err != nil {
				return "", err
			}

			creds.OAuth.AccessToken = token.AccessToken
			if token.RefreshToken != "" {
				creds.OAuth.RefreshToken = token.RefreshToken
			}
			creds.OAuth.TokenType = token.Type()
			creds.OAuth.Expiry = token.Expiry
			creds.UpdatedAt = time.Now()

			if err := p.credentialsStore.Save(ctx, *creds); err != nil {
				return "", fmt.Errorf("save refreshed credentials: %w", err)
			}
			logger.Debug("Refreshed OAuth token for account %s", p.accountID)
		}
	}

	p.cachedToken = creds.OAuth.AccessToken
	if !creds.OAuth.Expiry.IsZero() {
		p.cacheExpiry = creds.OAuth.Expiry.Add(-p.refreshBuffer)
	} else {
		p.cacheExpiry = time.Now().Add(1 * time.Hour)
	}

	return p.cachedToken, nil
}

// refresh exchanges a refresh token for a new access token.
func (p *CredentialsOAuthProvider) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	provider, err := p.authProviderStore.Get(ctx, p.authProviderID)
	if err != nil {
		return nil, fmt.Errorf("get auth provider: %w", err)
	}
	if !provider.IsOAuth() {
		return nil, fmt.Errorf("auth provider %s has no OAuth config: %w", provider.ID, domain.ErrAuthInvalid)
	}

	// A token with no access token is never valid, so the source always refreshes.
	source := google.OAuth2Config(provider.OAuth, "").TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenRefreshFailed, err)
	}
	return token, nil
}

// AccountID returns the account the tokens belong to.
func (p *CredentialsOAuthProvider) AccountID() string {
	return p.accountID
}

// AuthMethod returns AuthMethodOAuth.
func (p *CredentialsOAuthProvider) AuthMethod() domain.AuthMethod {
	return domain.AuthMethodOAuth
}

// IsAuthenticated returns true if the account has stored tokens.
func (p *CredentialsOAuthProvider) IsAuthenticated() bool {
	p.mu.RLock()
	if p.cachedToken != "" && time.Now().Before(p.cacheExpiry) {
		p.mu.RUnlock()
		return true
	}
	p.mu.RUnlock()

	creds, err := p.credentialsStore.GetByAccountID(context.Background(), p.accountID)
	if err != nil || creds == nil {
		return false
	}
	return creds.IsAuthenticated()
}

// InvalidateCache clears the cached token.
func (p *CredentialsOAuthProvider) InvalidateCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cachedToken = ""
	p.cacheExpiry = time.Time{}
}
