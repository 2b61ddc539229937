package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func testProvider(id string) domain.AuthProvider {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.AuthProvider{
		ID:   id,
		Name: "Client " + id,
		OAuth: &domain.OAuthProviderConfig{
			ClientID:     "client-" + id,
			ClientSecret: "secret-" + id,
			Scopes:       []string{"https://www.googleapis.com/auth/drive"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testOAuthAccount(id, name, providerID string) domain.Account {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Account{
		ID:             id,
		Name:           name,
		Method:         domain.AuthMethodOAuth,
		AuthProviderID: providerID,
		Scopes:         []string{"https://www.googleapis.com/auth/drive"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func testCredentials(id, accountID string) domain.Credentials {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Credentials{
		ID:                id,
		AccountID:         accountID,
		AccountIdentifier: "user@example.com",
		OAuth: &domain.OAuthCredentials{
			AccessToken:  "access-" + id,
			RefreshToken: "refresh-" + id,
			TokenType:    "Bearer",
			Expiry:       now.Add(time.Hour),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ==================== Store Creation Tests ====================

func TestNewStore_ErrorHandling(t *testing.T) {
	_, err := NewStore("/invalid\x00path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")
}

func TestNewStore_Success(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	dbPath := filepath.Join(dir, FileName)
	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)
	assert.NoError(t, store.db.Ping())

	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestNewStore_DefaultDirectory(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewStore("")
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(home, ".gapps", "data", FileName), store.Path())
}

func TestNewStore_DirectoryCreation(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "path")

	store, err := NewStore(nested)
	require.NoError(t, err)
	defer store.Close()

	assert.DirExists(t, nested)
}

func TestNewStore_Migrations(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	for _, table := range []string{"auth_providers", "accounts", "credentials"} {
		var exists int
		err := store.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.Equal(t, 1, exists, "table %s should exist", table)
	}
}

func TestStore_MigrationIdempotency(t *testing.T) {
	dir := t.TempDir()

	store1, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store1.Close())

	store2, err := NewStore(dir)
	require.NoError(t, err)
	defer store2.Close()

	var count int
	require.NoError(t, store2.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestStore_Pragmas(t *testing.T) {
	store := setupTestStore(t)

	var journalMode string
	require.NoError(t, store.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var fk int
	require.NoError(t, store.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestStore_Close(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.Error(t, store.db.Ping())
}

// ==================== AuthProviderStore Tests ====================

func TestAuthProviderStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	providers := setupTestStore(t).AuthProviderStore()

	want := testProvider("p1")
	require.NoError(t, providers.Save(ctx, want))

	got, err := providers.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.OAuth, got.OAuth)
	assert.WithinDuration(t, want.CreatedAt, got.CreatedAt, time.Second)
}

func TestAuthProviderStore_SaveUpdate(t *testing.T) {
	ctx := context.Background()
	providers := setupTestStore(t).AuthProviderStore()

	p := testProvider("p1")
	require.NoError(t, providers.Save(ctx, p))

	p.Name = "Renamed"
	p.OAuth.ClientSecret = "rotated"
	require.NoError(t, providers.Save(ctx, p))

	got, err := providers.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "rotated", got.OAuth.ClientSecret)
}

func TestAuthProviderStore_Validation(t *testing.T) {
	providers := setupTestStore(t).AuthProviderStore()

	err := providers.Save(context.Background(), domain.AuthProvider{Name: "no id"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAuthProviderStore_NilOAuth(t *testing.T) {
	ctx := context.Background()
	providers := setupTestStore(t).AuthProviderStore()

	p := testProvider("p1")
	p.OAuth = nil
	require.NoError(t, providers.Save(ctx, p))

	got, err := providers.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got.OAuth)
}

func TestAuthProviderStore_GetNotFound(t *testing.T) {
	providers := setupTestStore(t).AuthProviderStore()

	_, err := providers.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuthProviderStore_List(t *testing.T) {
	ctx := context.Background()
	providers := setupTestStore(t).AuthProviderStore()

	empty, err := providers.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	b := testProvider("b")
	b.Name = "Beta"
	a := testProvider("a")
	a.Name = "Alpha"
	require.NoError(t, providers.Save(ctx, b))
	require.NoError(t, providers.Save(ctx, a))

	list, err := providers.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alpha", list[0].Name)
	assert.Equal(t, "Beta", list[1].Name)
}

func TestAuthProviderStore_DeleteInUse(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	providers := store.AuthProviderStore()
	accounts := store.AccountStore()

	require.NoError(t, providers.Save(ctx, testProvider("p1")))
	require.NoError(t, accounts.Save(ctx, testOAuthAccount("a1", "user@example.com", "p1")))

	err := providers.Delete(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrAuthProviderInUse)

	require.NoError(t, accounts.Delete(ctx, "a1"))
	require.NoError(t, providers.Delete(ctx, "p1"))

	_, err = providers.Get(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==================== AccountStore Tests ====================

func TestAccountStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	require.NoError(t, store.AuthProviderStore().Save(ctx, testProvider("p1")))
	accounts := store.AccountStore()

	want := testOAuthAccount("a1", "user@example.com", "p1")
	require.NoError(t, accounts.Save(ctx, want))

	got, err := accounts.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, domain.AuthMethodOAuth, got.Method)
	assert.Equal(t, "p1", got.AuthProviderID)
	assert.Equal(t, want.Scopes, got.Scopes)
	assert.Empty(t, got.ServiceAccountKey)
}

func TestAccountStore_ServiceAccount(t *testing.T) {
	ctx := context.Background()
	accounts := setupTestStore(t).AccountStore()

	key := []byte(`{"type":"service_account","client_email":"bot@project.iam.gserviceaccount.com"}`)
	account := domain.Account{
		ID:                "sa1",
		Name:              "bot@project.iam.gserviceaccount.com",
		Method:            domain.AuthMethodServiceAccount,
		ServiceAccountKey: key,
		Subject:           "admin@example.com",
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	require.NoError(t, accounts.Save(ctx, account))

	got, err := accounts.Get(ctx, "sa1")
	require.NoError(t, err)
	assert.Equal(t, key, got.ServiceAccountKey)
	assert.Equal(t, "admin@example.com", got.Subject)
	assert.Empty(t, got.AuthProviderID)
	assert.Empty(t, got.Scopes)
}

func TestAccountStore_UnknownProvider(t *testing.T) {
	accounts := setupTestStore(t).AccountStore()

	err := accounts.Save(context.Background(), testOAuthAccount("a1", "user@example.com", "missing"))
	assert.Error(t, err)
}

func TestAccountStore_NameUnique(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	require.NoError(t, store.AuthProviderStore().Save(ctx, testProvider("p1")))
	accounts := store.AccountStore()

	require.NoError(t, accounts.Save(ctx, testOAuthAccount("a1", "user@example.com", "p1")))

	err := accounts.Save(ctx, testOAuthAccount("a2", "USER@example.com", "p1"))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	// Re-saving the same account keeps its name.
	require.NoError(t, accounts.Save(ctx, testOAuthAccount("a1", "User@Example.com", "p1")))
}

func TestAccountStore_GetByName(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	require.NoError(t, store.AuthProviderStore().Save(ctx, testProvider("p1")))
	accounts := store.AccountStore()
	require.NoError(t, accounts.Save(ctx, testOAuthAccount("a1", "user@example.com", "p1")))

	got, err := accounts.GetByName(ctx, "USER@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)

	_, err = accounts.GetByName(ctx, "other@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountStore_List(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	require.NoError(t, store.AuthProviderStore().Save(ctx, testProvider("p1")))
	accounts := store.AccountStore()

	require.NoError(t, accounts.Save(ctx, testOAuthAccount("a2", "zed@example.com", "p1")))
	require.NoError(t, accounts.Save(ctx, testOAuthAccount("a1", "amy@example.com", "p1")))

	list, err := accounts.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "amy@example.com", list[0].Name)
	assert.Equal(t, "zed@example.com", list[1].Name)
}

func TestAccountStore_DeleteCascadesCredentials(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	require.NoError(t, store.AuthProviderStore().Save(ctx, testProvider("p1")))
	accounts := store.AccountStore()
	creds := store.CredentialsStore()

	require.NoError(t, accounts.Save(ctx, testOAuthAccount("a1", "user@example.com", "p1")))
	require.NoError(t, creds.Save(ctx, testCredentials("c1", "a1")))

	require.NoError(t, accounts.Delete(ctx, "a1"))

	_, err := accounts.Get(ctx, "a1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = creds.Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, accounts.Delete(ctx, "a1"))
}

// ==================== CredentialsStore Tests ====================

func TestCredentialsStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	require.NoError(t, store.AuthProviderStore().Save(ctx, testProvider("p1")))
	require.NoError(t, store.AccountStore().Save(ctx, testOAuthAccount("a1", "user@example.com", "p1")))
	creds := store.CredentialsStore()

	want := testCredentials("c1", "a1")
	require.NoError(t, creds.Save(ctx, want))

	got, err := creds.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.AccountID)
	assert.Equal(t, "user@example.com", got.AccountIdentifier)
	require.NotNil(t, got.OAuth)
	assert.Equal(t, "access-c1", got.OAuth.AccessToken)
	assert.Equal(t, "refresh-c1", got.OAuth.RefreshToken)
	assert.WithinDuration(t, want.OAuth.Expiry, got.OAuth.Expiry, time.Second)

	byAccount, err := creds.GetByAccountID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "c1", byAccount.ID)
}

func TestCredentialsStore_GetByAccountID_None(t *testing.T) {
	creds := setupTestStore(t).CredentialsStore()

	got, err := creds.GetByAccountID(context.Background(), "a1")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestCredentialsStore_SaveReplacesAccountCredentials(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	require.NoError(t, store.AuthProviderStore().Save(ctx, testProvider("p1")))
	require.NoError(t, store.AccountStore().Save(ctx, testOAuthAccount("a1", "user@example.com", "p1")))
	creds := store.CredentialsStore()

	require.NoError(t, creds.Save(ctx, testCredentials("c1", "a1")))
	require.NoError(t, creds.Save(ctx, testCredentials("c2", "a1")))

	_, err := creds.Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := creds.GetByAccountID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "c2", got.ID)
}

func TestCredentialsStore_Validation(t *testing.T) {
	creds := setupTestStore(t).CredentialsStore()

	tests := []struct {
		name  string
		creds domain.Credentials
	}{
		{"missing id", domain.Credentials{AccountID: "a1"}},
		{"missing account", domain.Credentials{ID: "c1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, creds.Save(context.Background(), tt.creds), domain.ErrInvalidInput)
		})
	}
}

func TestCredentialsStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	require.NoError(t, store.AuthProviderStore().Save(ctx, testProvider("p1")))
	require.NoError(t, store.AccountStore().Save(ctx, testOAuthAccount("a1", "user@example.com", "p1")))
	creds := store.CredentialsStore()

	require.NoError(t, creds.Save(ctx, testCredentials("c1", "a1")))
	require.NoError(t, creds.Delete(ctx, "c1"))

	got, err := creds.GetByAccountID(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	providers := setupTestStore(t).AuthProviderStore()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			errs <- providers.Save(ctx, testProvider(id))
		}(string(rune('a' + i)))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	list, err := providers.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 10)
}
