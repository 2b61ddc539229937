package services

import (
	"context"
	"fmt"

	"google.golang.org/api/option"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/connectors/google/drive"
	"github.com/custodia-labs/gapps-cli/internal/connectors/google/sheets"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driving"
	"github.com/custodia-labs/gapps-cli/internal/logger"
)

// Session holds the API clients for one account.
type Session struct {
	// Account is nil when the session runs on a bare access token.
	Account *domain.Account
	Drive   *drive.Client
	Sheets  *sheets.Client
}

// SessionService opens Drive and Sheets clients for accounts.
type SessionService struct {
	accounts driving.AccountService
	tokens   driven.TokenProviderFactory
	config   driven.ConfigStore
	opts     []option.ClientOption
}

// NewSessionService creates a session service. opts are passed to every
// Google API service, so tests can point them at a fake endpoint.
func NewSessionService(
	accounts driving.AccountService,
	tokens driven.TokenProviderFactory,
	config driven.ConfigStore,
	opts ...option.ClientOption,
) *SessionService {
	return &SessionService{
		accounts: accounts,
		tokens:   tokens,
		config:   config,
		opts:     opts,
	}
}

// Open resolves ref (ID, name or empty for the default) and builds clients
// authenticated as that account.
func (s *SessionService) Open(ctx context.Context, ref string) (*Session, error) {
	account, err := s.accounts.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	provider, err := s.tokens.CreateTokenProvider(ctx, account)
	if err != nil {
		return nil, err
	}
	session, err := s.OpenWithProvider(ctx, provider)
	if err != nil {
		return nil, err
	}
	session.Account = account
	logger.Debug("Opened session for %s (%s)", account.Name, account.Method)
	return session, nil
}

// OpenWithProvider builds clients on an arbitrary token provider.
func (s *SessionService) OpenWithProvider(ctx context.Context, provider driven.TokenProvider) (*Session, error) {
	ts := google.NewTokenSource(ctx, provider)

	driveClient, err := drive.New(ctx, ts,
		drive.ParseConfig(s.config),
		google.RateLimiterFromConfig(s.config, google.ServiceDrive),
		s.opts...)
	if err != nil {
		return nil, fmt.Errorf("open drive: %w", err)
	}

	sheetsClient, err := sheets.New(ctx, ts,
		sheets.ParseConfig(s.config),
		google.RateLimiterFromConfig(s.config, google.ServiceSheets),
		s.opts...)
	if err != nil {
		return nil, fmt.Errorf("open sheets: %w", err)
	}

	return &Session{Drive: driveClient, Sheets: sheetsClient}, nil
}
