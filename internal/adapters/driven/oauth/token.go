// Package oauth implements the token side of the installed-app OAuth flow:
// consent URLs, code exchange with PKCE and identifying the user.
package oauth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
)

// Ensure Exchanger implements the OAuthExchanger interface.
var _ driven.OAuthExchanger = (*Exchanger)(nil)

// Exchanger performs OAuth requests against Google's endpoints, or the
// endpoints configured on the client.
type Exchanger struct{}

// NewExchanger creates an exchanger.
func NewExchanger() *Exchanger {
	return &Exchanger{}
}

// AuthCodeURL builds the consent URL. Offline access and a forced consent
// prompt make Google return a refresh token on every login.
func (e *Exchanger) AuthCodeURL(cfg *domain.OAuthProviderConfig, redirectURI, state, verifier string) string {
	return google.OAuth2Config(cfg, redirectURI).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.S256ChallengeOption(verifier),
	)
}

// Exchange trades an authorization code for tokens.
func (e *Exchanger) Exchange(
	ctx context.Context, cfg *domain.OAuthProviderConfig, redirectURI, code, verifier string,
) (*domain.OAuthCredentials, error) {
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	token, err := google.OAuth2Config(cfg, redirectURI).Exchange(ctx, code, opts...)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.ErrorCode != "" {
			return nil, fmt.Errorf("token error: %s - %s: %w", rerr.ErrorCode, rerr.ErrorDescription, domain.ErrAuthInvalid)
		}
		return nil, fmt.Errorf("token request: %w", err)
	}

	return &domain.OAuthCredentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		Expiry:       token.Expiry,
	}, nil
}

// UserEmail looks up the email address of the token's owner.
func (e *Exchanger) UserEmail(ctx context.Context, accessToken string) (string, error) {
	info, err := google.GetUserInfo(ctx, accessToken)
	if err != nil {
		return "", err
	}
	if info.Email == "" {
		return "", fmt.Errorf("user info has no email: %w", domain.ErrAuthInvalid)
	}
	return info.Email, nil
}
