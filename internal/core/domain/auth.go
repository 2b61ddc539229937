package domain

// AuthMethod defines how an account authenticates against Google.
type AuthMethod string

const (
	// AuthMethodOAuth uses the OAuth 2.0 installed-app flow with PKCE.
	AuthMethodOAuth AuthMethod = "oauth"
	// AuthMethodServiceAccount uses a service account JSON key (JWT bearer flow).
	AuthMethodServiceAccount AuthMethod = "service_account"
	// AuthMethodToken uses a caller supplied access token (no refresh).
	AuthMethodToken AuthMethod = "token"
)

// IsValid returns true for known authentication methods.
func (m AuthMethod) IsValid() bool {
	switch m {
	case AuthMethodOAuth, AuthMethodServiceAccount, AuthMethodToken:
		return true
	default:
		return false
	}
}
