// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// Interfaces:
//
//   - AccountStore: Account persistence
//   - AuthProviderStore: OAuth client application persistence
//   - CredentialsStore: OAuth token persistence
//   - ConfigStore: Application configuration
//   - TokenProvider, TokenProviderFactory: Access tokens for API calls
//   - OAuthExchanger, CallbackServer: Installed-app OAuth flow
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
