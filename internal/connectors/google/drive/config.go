package drive

import (
	"maps"

	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
)

// Config keys read from the config store.
const (
	KeyPageSize          = "drive.page_size"
	KeyBatchConcurrency  = "drive.batch_concurrency"
	KeySupportsAllDrives = "drive.supports_all_drives"
)

// DefaultFileFields is the partial response selector for file metadata.
const DefaultFileFields = "id, name, mimeType, parents, size, createdTime, modifiedTime, webViewLink, trashed, properties"

// Config holds Google Drive client configuration.
type Config struct {
	// PageSize is the page size for list requests.
	PageSize int64
	// FileFields selects the file metadata returned by the API.
	FileFields string
	// SupportsAllDrives includes shared drives in requests.
	SupportsAllDrives bool
	// BatchConcurrency bounds the calls in flight during batched operations.
	BatchConcurrency int
	// ExportFormats maps Workspace MIME types to their default export format.
	ExportFormats map[string]string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PageSize:          100,
		FileFields:        DefaultFileFields,
		SupportsAllDrives: true,
		BatchConcurrency:  8,
		ExportFormats:     maps.Clone(DefaultExportFormats),
	}
}

// ParseConfig reads drive settings from the config store.
// Missing or invalid values keep their defaults.
func ParseConfig(store driven.ConfigStore) *Config {
	cfg := DefaultConfig()
	if store == nil {
		return cfg
	}

	if n := store.GetInt(KeyPageSize); n > 0 && n <= 1000 {
		cfg.PageSize = int64(n)
	}
	if n := store.GetInt(KeyBatchConcurrency); n > 0 {
		cfg.BatchConcurrency = n
	}
	if _, ok := store.Get(KeySupportsAllDrives); ok {
		cfg.SupportsAllDrives = store.GetBool(KeySupportsAllDrives)
	}

	return cfg
}

// ExportFormat returns the default export MIME type for a Workspace file.
func (c *Config) ExportFormat(mimeType string) (string, bool) {
	format, ok := c.ExportFormats[mimeType]
	return format, ok
}

func (c *Config) listFields() string {
	return "nextPageToken, files(" + c.FileFields + ")"
}
