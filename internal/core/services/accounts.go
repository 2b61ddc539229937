package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driving"
	"github.com/custodia-labs/gapps-cli/internal/logger"
)

// Ensure AccountService implements the interface.
var _ driving.AccountService = (*AccountService)(nil)

// Config keys read by the account service.
const (
	KeyDefaultAccount    = "default_account"
	KeyCallbackPortStart = "oauth.callback_port_start"
	KeyCallbackPortEnd   = "oauth.callback_port_end"
	KeyLoginTimeout      = "oauth.login_timeout"
)

// Login defaults.
const (
	DefaultCallbackPortStart = 8085
	DefaultCallbackPortEnd   = 8099
	DefaultLoginTimeout      = 5 * time.Minute
)

// AccountService manages OAuth clients, accounts and the default account.
type AccountService struct {
	providers   driven.AuthProviderStore
	accounts    driven.AccountStore
	credentials driven.CredentialsStore
	config      driven.ConfigStore
	exchanger   driven.OAuthExchanger
	newCallback driven.CallbackServerFactory

	now func() time.Time
}

// NewAccountService creates an account service. exchanger and newCallback are
// only needed for Login.
func NewAccountService(
	providers driven.AuthProviderStore,
	accounts driven.AccountStore,
	credentials driven.CredentialsStore,
	config driven.ConfigStore,
	exchanger driven.OAuthExchanger,
	newCallback driven.CallbackServerFactory,
) *AccountService {
	return &AccountService{
		providers:   providers,
		accounts:    accounts,
		credentials: credentials,
		config:      config,
		exchanger:   exchanger,
		newCallback: newCallback,
		now:         time.Now,
	}
}

// AddOAuthClient stores an OAuth client application.
func (s *AccountService) AddOAuthClient(
	ctx context.Context, name string, cfg domain.OAuthProviderConfig,
) (*domain.AuthProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client id and secret are required: %w", domain.ErrInvalidInput)
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = google.DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = google.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = google.TokenURL
	}
	if name == "" {
		name = cfg.ClientID
	}

	now := s.now()
	provider := domain.AuthProvider{
		ID:        uuid.New().String(),
		Name:      name,
		OAuth:     &cfg,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.providers.Save(ctx, provider); err != nil {
		return nil, fmt.Errorf("save oauth client: %w", err)
	}
	logger.Debug("Added OAuth client %s (%s)", provider.Name, provider.ID)
	return &provider, nil
}

// ListOAuthClients returns every stored OAuth client.
func (s *AccountService) ListOAuthClients(ctx context.Context) ([]domain.AuthProvider, error) {
	return s.providers.List(ctx)
}

// RemoveOAuthClient deletes an OAuth client that no account uses.
func (s *AccountService) RemoveOAuthClient(ctx context.Context, id string) error {
	if _, err := s.providers.Get(ctx, id); err != nil {
		return fmt.Errorf("get oauth client %s: %w", id, err)
	}
	return s.providers.Delete(ctx, id)
}

// AddServiceAccount stores a service account from its JSON key. Adding the
// same key and subject again replaces the stored key.
func (s *AccountService) AddServiceAccount(
	ctx context.Context, key []byte, subject string, scopes []string,
) (*domain.Account, error) {
	kind, err := google.DetectCredentialsType(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if kind != google.CredentialsServiceAccount {
		return nil, fmt.Errorf("expected a service account key, got %s: %w", kind, domain.ErrInvalidInput)
	}
	email := google.ServiceAccountEmail(key)
	if email == "" {
		return nil, fmt.Errorf("service account key has no client_email: %w", domain.ErrInvalidInput)
	}

	name := email
	if subject != "" {
		name = fmt.Sprintf("%s (as %s)", email, subject)
	}
	if len(scopes) == 0 {
		scopes = []string{google.ScopeDrive, google.ScopeSheets}
	}

	now := s.now()
	account := domain.Account{
		ID:                uuid.New().String(),
		Name:              name,
		Method:            domain.AuthMethodServiceAccount,
		ServiceAccountKey: key,
		Subject:           subject,
		Scopes:            scopes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if existing, err := s.accounts.GetByName(ctx, name); err == nil {
		account.ID = existing.ID
		account.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("look up account %s: %w", name, err)
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}
	if err := s.ensureDefault(account.ID); err != nil {
		return nil, err
	}
	return &account, nil
}

// Login runs the installed-app OAuth flow against a stored client and saves
// the resulting account and tokens.
func (s *AccountService) Login(
	ctx context.Context, providerID string, callbacks driving.LoginCallbacks,
) (*domain.Account, error) {
	if s.exchanger == nil || s.newCallback == nil {
		return nil, domain.ErrNotImplemented
	}

	provider, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("get oauth client %s: %w", providerID, err)
	}
	if !provider.IsOAuth() {
		return nil, fmt.Errorf("oauth client %s has no client id: %w", providerID, domain.ErrInvalidInput)
	}

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	port, err := FindAvailablePort(s.callbackPorts())
	if err != nil {
		return nil, err
	}
	server := s.newCallback(port, state)
	if err := server.Start(); err != nil {
		return nil, fmt.Errorf("start callback server: %w", err)
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("Stopping callback server: %v", err)
		}
	}()

	redirectURI := server.RedirectURI()
	authURL := s.exchanger.AuthCodeURL(provider.OAuth, redirectURI, state, verifier)
	if callbacks.OnAuthURL != nil {
		if err := callbacks.OnAuthURL(authURL); err != nil {
			return nil, err
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.loginTimeout())
	defer cancel()
	code, err := server.WaitForCode(waitCtx)
	if err != nil {
		return nil, fmt.Errorf("authorization: %w", err)
	}

	tokens, err := s.exchanger.Exchange(ctx, provider.OAuth, redirectURI, code, verifier)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	email, err := s.exchanger.UserEmail(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("identify user: %w", err)
	}

	return s.saveLogin(ctx, provider, email, tokens)
}

// saveLogin creates or updates the account for email and stores its tokens.
func (s *AccountService) saveLogin(
	ctx context.Context, provider *domain.AuthProvider, email string, tokens *domain.OAuthCredentials,
) (*domain.Account, error) {
	now := s.now()
	account := domain.Account{
		ID:             uuid.New().String(),
		Name:           email,
		Method:         domain.AuthMethodOAuth,
		AuthProviderID: provider.ID,
		Scopes:         provider.OAuth.Scopes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	existing, err := s.accounts.GetByName(ctx, email)
	switch {
	case err == nil:
		account.ID = existing.ID
		account.CreatedAt = existing.CreatedAt
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("look up account %s: %w", email, err)
	}

	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}

	creds := domain.Credentials{
		ID:                uuid.New().String(),
		AccountID:         account.ID,
		AccountIdentifier: email,
		OAuth:             tokens,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	previous, err := s.credentials.GetByAccountID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	if previous != nil {
		creds.ID = previous.ID
		creds.CreatedAt = previous.CreatedAt
		// Google omits the refresh token when consent was already granted.
		if creds.OAuth.RefreshToken == "" && previous.OAuth != nil {
			creds.OAuth.RefreshToken = previous.OAuth.RefreshToken
		}
	}
	if err := s.credentials.Save(ctx, creds); err != nil {
		return nil, fmt.Errorf("save credentials: %w", err)
	}

	if err := s.ensureDefault(account.ID); err != nil {
		return nil, err
	}
	logger.Info("Logged in as %s", email)
	return &account, nil
}

// List returns every account.
func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	return s.accounts.List(ctx)
}

// Resolve finds an account by ID or name. An empty reference resolves to the
// default account, or to the only account when exactly one exists.
func (s *AccountService) Resolve(ctx context.Context, ref string) (*domain.Account, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = s.Default()
	}
	if ref == "" {
		all, err := s.accounts.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(all) == 1 {
			return &all[0], nil
		}
		return nil, domain.ErrAuthRequired
	}

	account, err := s.accounts.Get(ctx, ref)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	account, err = s.accounts.GetByName(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", ref, err)
	}
	return account, nil
}

// Remove deletes an account and its tokens.
func (s *AccountService) Remove(ctx context.Context, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return domain.ErrInvalidInput
	}
	account, err := s.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if s.config != nil && s.Default() == account.ID {
		if err := s.config.Unset(KeyDefaultAccount); err != nil {
			return fmt.Errorf("clear default account: %w", err)
		}
	}
	return nil
}

// SetDefault marks an account as the default.
func (s *AccountService) SetDefault(ctx context.Context, ref string) error {
	if s.config == nil {
		return domain.ErrNotImplemented
	}
	if strings.TrimSpace(ref) == "" {
		return domain.ErrInvalidInput
	}
	account, err := s.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	return s.config.Set(KeyDefaultAccount, account.ID)
}

// Default returns the ID of the default account, or empty string.
func (s *AccountService) Default() string {
	if s.config == nil {
		return ""
	}
	return s.config.GetString(KeyDefaultAccount)
}

// ensureDefault makes id the default when none is set.
func (s *AccountService) ensureDefault(id string) error {
	if s.config == nil || s.Default() != "" {
		return nil
	}
	if err := s.config.Set(KeyDefaultAccount, id); err != nil {
		return fmt.Errorf("set default account: %w", err)
	}
	return nil
}

func (s *AccountService) callbackPorts() (int, int) {
	start, end := DefaultCallbackPortStart, DefaultCallbackPortEnd
	if s.config != nil {
		if v := s.config.GetInt(KeyCallbackPortStart); v > 0 {
			start = v
		}
		if v := s.config.GetInt(KeyCallbackPortEnd); v > 0 {
			end = v
		}
	}
	if end < start {
		end = start
	}
	return start, end
}

func (s *AccountService) loginTimeout() time.Duration {
	if s.config != nil {
		if v := s.config.GetInt(KeyLoginTimeout); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return DefaultLoginTimeout
}
