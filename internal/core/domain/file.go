package domain

import "time"

// FolderMimeType is the MIME type Drive uses for folders.
const FolderMimeType = "application/vnd.google-apps.folder"

// File is a flattened Drive file or folder.
type File struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	MimeType     string            `json:"mime_type"`
	Parents      []string          `json:"parents,omitempty"`
	Size         int64             `json:"size,omitempty"`
	CreatedTime  time.Time         `json:"created_time,omitzero"`
	ModifiedTime time.Time         `json:"modified_time,omitzero"`
	WebLink      string            `json:"web_link,omitempty"`
	Trashed      bool              `json:"trashed,omitempty"`
	Properties   map[string]string `json:"properties,omitempty"`
}

// IsFolder returns true if the file is a Drive folder.
func (f *File) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// Change is one entry of the Drive changes feed.
type Change struct {
	FileID  string    `json:"file_id"`
	Removed bool      `json:"removed"`
	Time    time.Time `json:"time,omitzero"`
	// File is nil when the file was removed or is no longer visible.
	File *File `json:"file,omitempty"`
}

// Property is a key/value pair attached to a Drive file.
type Property struct {
	Key        string             `json:"key"`
	Value      string             `json:"value"`
	Visibility PropertyVisibility `json:"visibility"`
}

// PropertyVisibility controls who can see a property.
type PropertyVisibility string

const (
	// VisibilityPublic properties are visible to all apps.
	VisibilityPublic PropertyVisibility = "PUBLIC"
	// VisibilityPrivate properties are visible only to the app that set them.
	VisibilityPrivate PropertyVisibility = "PRIVATE"
)
