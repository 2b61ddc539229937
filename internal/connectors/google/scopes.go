package google

// OAuth2 scopes used by gapps.
const (
	ScopeUserInfoEmail  = "https://www.googleapis.com/auth/userinfo.email"
	ScopeDrive          = "https://www.googleapis.com/auth/drive"
	ScopeDriveReadonly  = "https://www.googleapis.com/auth/drive.readonly"
	ScopeDriveFile      = "https://www.googleapis.com/auth/drive.file"
	ScopeSheets         = "https://www.googleapis.com/auth/spreadsheets"
	ScopeSheetsReadonly = "https://www.googleapis.com/auth/spreadsheets.readonly"
)

// Google's OAuth2 endpoints for installed applications.
const (
	AuthURL  = "https://accounts.google.com/o/oauth2/auth"
	TokenURL = "https://oauth2.googleapis.com/token"
)

// DefaultScopes returns the scopes requested when none are configured.
func DefaultScopes() []string {
	return []string{ScopeUserInfoEmail, ScopeDrive, ScopeSheets}
}

// ReadonlyScopes returns read-only scopes for Drive and Sheets.
func ReadonlyScopes() []string {
	return []string{ScopeUserInfoEmail, ScopeDriveReadonly, ScopeSheetsReadonly}
}
