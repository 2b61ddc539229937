package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/gapps-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// FileName is the database file created inside the data directory.
const FileName = "accounts.db"

// Store is a SQLite-backed store for OAuth clients, accounts and tokens.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database in dataDir.
// If dataDir is empty, defaults to ~/.gapps/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".gapps", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, FileName)

	// Pragmas in the DSN apply to every pooled connection.
	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	// The database holds refresh tokens.
	if err := os.Chmod(dbPath, 0600); err != nil {
		db.Close()
		return nil, fmt.Errorf("restricting database permissions: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// AuthProviderStore returns an AuthProviderStore backed by this store.
func (s *Store) AuthProviderStore() driven.AuthProviderStore {
	return &authProviderStore{store: s}
}

// AccountStore returns an AccountStore backed by this store.
func (s *Store) AccountStore() driven.AccountStore {
	return &accountStore{store: s}
}

// CredentialsStore returns a CredentialsStore backed by this store.
func (s *Store) CredentialsStore() driven.CredentialsStore {
	return &credentialsStore{store: s}
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("getting schema version: %w", err)
	}
	return version, nil
}

// migrate applies every NNN_name.up.sql file newer than the recorded version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	currentVersion, err := s.SchemaVersion()
	if err != nil {
		return err
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("starting migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// =============================================================================
// AuthProviderStore Implementation
// =============================================================================

type authProviderStore struct {
	store *Store
}

var _ driven.AuthProviderStore = (*authProviderStore)(nil)

// Save stores or updates an auth provider.
func (s *authProviderStore) Save(ctx context.Context, provider domain.AuthProvider) error {
	if provider.ID == "" {
		return domain.ErrInvalidInput
	}

	oauthJSON, err := json.Marshal(provider.OAuth)
	if err != nil {
		return fmt.Errorf("marshalling oauth config: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO auth_providers (id, name, oauth, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			oauth = excluded.oauth,
			updated_at = excluded.updated_at
	`, provider.ID, provider.Name, string(oauthJSON), provider.CreatedAt, provider.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving auth provider: %w", err)
	}
	return nil
}

// Get retrieves an auth provider by ID.
func (s *authProviderStore) Get(ctx context.Context, id string) (*domain.AuthProvider, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, oauth, created_at, updated_at
		FROM auth_providers WHERE id = ?
	`, id)

	return scanAuthProvider(row)
}

// List returns all auth providers ordered by name.
func (s *authProviderStore) List(ctx context.Context) ([]domain.AuthProvider, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, oauth, created_at, updated_at
		FROM auth_providers ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying auth providers: %w", err)
	}
	defer rows.Close()

	var providers []domain.AuthProvider
	for rows.Next() {
		provider, err := scanAuthProvider(rows)
		if err != nil {
			return nil, err
		}
		providers = append(providers, *provider)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating auth providers: %w", err)
	}
	return providers, nil
}

// Delete removes an auth provider that no account references.
func (s *authProviderStore) Delete(ctx context.Context, id string) error {
	var count int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accounts WHERE auth_provider_id = ?", id).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking provider usage: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %d account(s)", domain.ErrAuthProviderInUse, count)
	}

	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM auth_providers WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting auth provider: %w", err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAuthProvider(row scanner) (*domain.AuthProvider, error) {
	var provider domain.AuthProvider
	var oauthJSON sql.NullString

	if err := row.Scan(&provider.ID, &provider.Name, &oauthJSON,
		&provider.CreatedAt, &provider.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning auth provider: %w", err)
	}

	if oauthJSON.Valid && oauthJSON.String != jsonNull {
		var oauth domain.OAuthProviderConfig
		if err := json.Unmarshal([]byte(oauthJSON.String), &oauth); err != nil {
			return nil, fmt.Errorf("unmarshalling oauth config: %w", err)
		}
		provider.OAuth = &oauth
	}

	return &provider, nil
}

// =============================================================================
// AccountStore Implementation
// =============================================================================

type accountStore struct {
	store *Store
}

var _ driven.AccountStore = (*accountStore)(nil)

const accountColumns = `id, name, method, auth_provider_id, service_account_key,
	subject, scopes, created_at, updated_at`

// Save stores or updates an account.
// Returns domain.ErrAlreadyExists if another account has the same name.
func (s *accountStore) Save(ctx context.Context, account domain.Account) error {
	if account.ID == "" || account.Name == "" {
		return domain.ErrInvalidInput
	}

	scopes := account.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	scopesJSON, err := json.Marshal(scopes)
	if err != nil {
		return fmt.Errorf("marshalling scopes: %w", err)
	}

	var providerID sql.NullString
	if account.AuthProviderID != "" {
		providerID = sql.NullString{String: account.AuthProviderID, Valid: true}
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var clash int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accounts WHERE name = ? COLLATE NOCASE AND id != ?",
		account.Name, account.ID).Scan(&clash)
	if err != nil {
		return fmt.Errorf("checking account name: %w", err)
	}
	if clash > 0 {
		return fmt.Errorf("account %q: %w", account.Name, domain.ErrAlreadyExists)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			method = excluded.method,
			auth_provider_id = excluded.auth_provider_id,
			service_account_key = excluded.service_account_key,
			subject = excluded.subject,
			scopes = excluded.scopes,
			updated_at = excluded.updated_at
	`, account.ID, account.Name, string(account.Method), providerID, account.ServiceAccountKey,
		account.Subject, string(scopesJSON), account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing account: %w", err)
	}
	return nil
}

// Get retrieves an account by ID.
func (s *accountStore) Get(ctx context.Context, id string) (*domain.Account, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	return scanAccount(row)
}

// GetByName retrieves an account by name, case-insensitively.
func (s *accountStore) GetByName(ctx context.Context, name string) (*domain.Account, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE name = ? COLLATE NOCASE", name)
	return scanAccount(row)
}

// List returns all accounts ordered by name.
func (s *accountStore) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}
	return accounts, nil
}

// Delete removes an account. Its credentials go with it (ON DELETE CASCADE).
func (s *accountStore) Delete(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}

func scanAccount(row scanner) (*domain.Account, error) {
	var account domain.Account
	var method, scopesJSON string
	var providerID sql.NullString

	if err := row.Scan(&account.ID, &account.Name, &method, &providerID,
		&account.ServiceAccountKey, &account.Subject, &scopesJSON,
		&account.CreatedAt, &account.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning account: %w", err)
	}

	account.Method = domain.AuthMethod(method)
	account.AuthProviderID = providerID.String
	if err := json.Unmarshal([]byte(scopesJSON), &account.Scopes); err != nil {
		return nil, fmt.Errorf("unmarshalling scopes: %w", err)
	}

	return &account, nil
}

// =============================================================================
// CredentialsStore Implementation
// =============================================================================

type credentialsStore struct {
	store *Store
}

var _ driven.CredentialsStore = (*credentialsStore)(nil)

// Save stores or updates credentials. An account holds a single set, so
// saving under a new ID replaces whatever the account had before.
func (s *credentialsStore) Save(ctx context.Context, creds domain.Credentials) error {
	if creds.ID == "" || creds.AccountID == "" {
		return domain.ErrInvalidInput
	}

	oauthJSON, err := json.Marshal(creds.OAuth)
	if err != nil {
		return fmt.Errorf("marshalling oauth credentials: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		"DELETE FROM credentials WHERE account_id = ? AND id != ?", creds.AccountID, creds.ID)
	if err != nil {
		return fmt.Errorf("replacing credentials: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials
			(id, account_id, account_identifier, oauth, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			account_identifier = excluded.account_identifier,
			oauth = excluded.oauth,
			updated_at = excluded.updated_at
	`, creds.ID, creds.AccountID, creds.AccountIdentifier,
		string(oauthJSON), creds.CreatedAt, creds.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing credentials: %w", err)
	}
	return nil
}

// Get retrieves credentials by ID.
func (s *credentialsStore) Get(ctx context.Context, id string) (*domain.Credentials, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, account_id, account_identifier, oauth, created_at, updated_at
		FROM credentials WHERE id = ?
	`, id)

	return scanCredentials(row)
}

// GetByAccountID retrieves credentials for a specific account.
func (s *credentialsStore) GetByAccountID(ctx context.Context, accountID string) (*domain.Credentials, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, account_id, account_identifier, oauth, created_at, updated_at
		FROM credentials WHERE account_id = ?
	`, accountID)

	creds, err := scanCredentials(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil // service accounts have none
	}
	return creds, err
}

// Delete removes credentials by ID.
func (s *credentialsStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM credentials WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting credentials: %w", err)
	}
	return nil
}

func scanCredentials(row scanner) (*domain.Credentials, error) {
	var creds domain.Credentials
	var oauthJSON sql.NullString

	if err := row.Scan(&creds.ID, &creds.AccountID, &creds.AccountIdentifier,
		&oauthJSON, &creds.CreatedAt, &creds.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning credentials: %w", err)
	}

	if oauthJSON.Valid && oauthJSON.String != jsonNull {
		var oauth domain.OAuthCredentials
		if err := json.Unmarshal([]byte(oauthJSON.String), &oauth); err != nil {
			return nil, fmt.Errorf("unmarshalling oauth credentials: %w", err)
		}
		creds.OAuth = &oauth
	}

	return &creds, nil
}
