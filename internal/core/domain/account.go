package domain

import "time"

// Account is an identity used to call the Drive and Sheets APIs.
type Account struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`
	// Name is the account label, usually the email address.
	Name string `json:"name"`
	// Method is how the account authenticates.
	Method AuthMethod `json:"method"`

	// AuthProviderID links OAuth accounts to their client application.
	AuthProviderID string `json:"auth_provider_id,omitempty"`

	// ServiceAccountKey is the raw JSON key for service accounts.
	ServiceAccountKey []byte `json:"-"`
	// Subject is the user impersonated through domain-wide delegation.
	Subject string `json:"subject,omitempty"`

	// Scopes are the OAuth scopes granted to the account.
	Scopes []string `json:"scopes"`

	// CreatedAt is when the account was added.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the account was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsServiceAccount returns true if the account authenticates with a JSON key.
func (a *Account) IsServiceAccount() bool {
	return a.Method == AuthMethodServiceAccount
}

// Validate checks that the account carries what its method needs.
func (a *Account) Validate() error {
	if a.ID == "" || a.Name == "" || !a.Method.IsValid() {
		return ErrInvalidInput
	}
	switch a.Method {
	case AuthMethodOAuth:
		if a.AuthProviderID == "" {
			return ErrInvalidInput
		}
	case AuthMethodServiceAccount:
		if len(a.ServiceAccountKey) == 0 {
			return ErrInvalidInput
		}
	}
	return nil
}
