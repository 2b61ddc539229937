package drive

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

// URIScheme prefixes file URIs of the form gdrive://files/{id}.
const URIScheme = "gdrive://files/"

var (
	pathIDPattern  = regexp.MustCompile(`/(?:d|folders)/([a-zA-Z0-9_-]{10,})`)
	bareIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,}$`)
	queryIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// FileURI returns the gdrive:// URI for a file ID.
func FileURI(id string) string {
	return URIScheme + id
}

// ResolveWebURL returns the browser URL for a file. The API supplied link
// wins; otherwise the URL is derived from the MIME type.
func ResolveWebURL(f *domain.File) string {
	if f == nil || f.ID == "" {
		return ""
	}
	if f.WebLink != "" {
		return f.WebLink
	}

	switch f.MimeType {
	case MimeTypeFolder:
		return "https://drive.google.com/drive/folders/" + f.ID
	case MimeTypeGoogleDoc:
		return "https://docs.google.com/document/d/" + f.ID + "/edit"
	case MimeTypeGoogleSheet:
		return "https://docs.google.com/spreadsheets/d/" + f.ID + "/edit"
	case MimeTypeGoogleSlides:
		return "https://docs.google.com/presentation/d/" + f.ID + "/edit"
	case MimeTypeGoogleDrawing:
		return "https://docs.google.com/drawings/d/" + f.ID + "/edit"
	default:
		return "https://drive.google.com/file/d/" + f.ID + "/view"
	}
}

// FileIDFromURL extracts a file ID from a Drive or Docs URL, a gdrive:// URI,
// or a bare ID.
func FileIDFromURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.ErrInvalidInput
	}

	if id, ok := strings.CutPrefix(raw, URIScheme); ok && queryIDPattern.MatchString(id) {
		return id, nil
	}
	if bareIDPattern.MatchString(raw) {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", domain.ErrInvalidInput
	}
	if m := pathIDPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1], nil
	}
	if id := u.Query().Get("id"); id != "" && queryIDPattern.MatchString(id) {
		return id, nil
	}

	return "", domain.ErrInvalidInput
}
