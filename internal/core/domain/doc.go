// Package domain defines the core entities for gapps.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - File, Permission, Property: flattened Google Drive resources
//   - SpreadsheetInfo, SheetInfo: flattened Google Sheets metadata
//   - Account: an identity used to call Google APIs
//   - AuthProvider: a reusable OAuth client application
//   - Credentials: OAuth tokens belonging to an account
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
