package auth

import (
	"context"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
)

// Ensure StaticTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*StaticTokenProvider)(nil)

// StaticTokenProvider returns a caller supplied access token as-is.
// Used for GAPPS_ACCESS_TOKEN and for tests; the token is never refreshed.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a provider for a fixed access token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

// GetToken returns the token, or ErrAuthRequired if it is empty.
func (p *StaticTokenProvider) GetToken(_ context.Context) (string, error) {
	if p.token == "" {
		return "", domain.ErrAuthRequired
	}
	return p.token, nil
}

// AccountID returns an empty string since the token is not tied to a stored account.
func (p *StaticTokenProvider) AccountID() string {
	return ""
}

// AuthMethod returns AuthMethodToken.
func (p *StaticTokenProvider) AuthMethod() domain.AuthMethod {
	return domain.AuthMethodToken
}

// IsAuthenticated returns true if a token is set.
func (p *StaticTokenProvider) IsAuthenticated() bool {
	return p.token != ""
}
