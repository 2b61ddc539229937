// Package google provides shared infrastructure for the Drive and Sheets clients.
//
// This package contains common utilities used by the drive, sheets and batch
// packages including:
//   - TokenSource adapter to bridge gapps' TokenProvider to oauth2.TokenSource
//   - Service factories for Drive v2, Drive v3 and Sheets v4 clients
//   - Service account and OAuth client JSON handling
//   - Error handling for common Google API errors (401, 403, 404, 409, 410, 429)
//   - Rate limiting to respect Google API quotas
//
// # Usage
//
//	ts := google.NewTokenSource(ctx, tokenProvider)
//	svc, err := google.NewDriveService(ctx, ts)
//
// # OAuth2 Scopes
//
// gapps requests these scopes by default:
//   - https://www.googleapis.com/auth/userinfo.email
//   - https://www.googleapis.com/auth/drive
//   - https://www.googleapis.com/auth/spreadsheets
package google
