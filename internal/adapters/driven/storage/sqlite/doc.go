// Package sqlite persists OAuth clients, accounts and their tokens in SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single database connection backs:
//
//   - AuthProviderStore: OAuth client applications
//   - AccountStore: user and service accounts
//   - CredentialsStore: OAuth tokens, one set per account
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Deleting an account cascades to its credentials.
//
// # Data Location
//
// By default, the database is stored at ~/.gapps/data/accounts.db with mode 0600.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
