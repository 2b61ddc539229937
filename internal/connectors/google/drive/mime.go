package drive

import "github.com/custodia-labs/gapps-cli/internal/core/domain"

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc     = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet   = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides  = "application/vnd.google-apps.presentation"
	MimeTypeGoogleDrawing = "application/vnd.google-apps.drawing"
	MimeTypeFolder        = domain.FolderMimeType
)

// Export formats for Google Workspace files.
const (
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
	ExportMimePNG  = "image/png"
	ExportMimePDF  = "application/pdf"
	ExportMimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ExportMimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// DefaultExportFormats maps Workspace types to the format used when no
// export MIME type is requested.
var DefaultExportFormats = map[string]string{
	MimeTypeGoogleDoc:     ExportMimeText,
	MimeTypeGoogleSheet:   ExportMimeCSV,
	MimeTypeGoogleSlides:  ExportMimeText,
	MimeTypeGoogleDrawing: ExportMimePNG,
}

// conversionTargets maps upload MIME types to the Workspace type they convert into.
var conversionTargets = map[string]string{
	"text/csv":                  MimeTypeGoogleSheet,
	"text/tab-separated-values": MimeTypeGoogleSheet,
	ExportMimeXLSX:              MimeTypeGoogleSheet,
	"application/vnd.ms-excel":  MimeTypeGoogleSheet,
	"text/plain":                MimeTypeGoogleDoc,
	"text/html":                 MimeTypeGoogleDoc,
	ExportMimeDOCX:              MimeTypeGoogleDoc,
	"application/msword":        MimeTypeGoogleDoc,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": MimeTypeGoogleSlides,
}

// IsWorkspaceType returns true for Google Docs, Sheets, Slides and Drawings,
// which have no binary content and must be exported.
func IsWorkspaceType(mimeType string) bool {
	switch mimeType {
	case MimeTypeGoogleDoc, MimeTypeGoogleSheet, MimeTypeGoogleSlides, MimeTypeGoogleDrawing:
		return true
	default:
		return false
	}
}

// ConversionTarget returns the Workspace type an upload of mimeType converts to.
func ConversionTarget(mimeType string) (string, bool) {
	target, ok := conversionTargets[mimeType]
	return target, ok
}
