package drive

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// CursorVersion is the current cursor format version.
const CursorVersion = 1

// ErrInvalidCursor indicates the cursor could not be decoded.
var ErrInvalidCursor = errors.New("drive: invalid cursor format")

// Cursor tracks a position in the Drive changes feed.
type Cursor struct {
	// Version is the cursor format version.
	Version int `json:"v"`
	// StartPageToken is the changes.list token to resume from.
	StartPageToken string `json:"start_page_token"`
	// UpdatedAt is when the token was obtained.
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// NewCursor creates a cursor at the given page token.
func NewCursor(token string) *Cursor {
	return &Cursor{
		Version:        CursorVersion,
		StartPageToken: token,
		UpdatedAt:      time.Now().UTC(),
	}
}

// Encode serialises the cursor to a base64 string for storage.
func (c *Cursor) Encode() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor deserialises a cursor from a base64 string.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, ErrInvalidCursor
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, ErrInvalidCursor
	}

	if cursor.Version < 1 || cursor.Version > CursorVersion || cursor.StartPageToken == "" {
		return nil, ErrInvalidCursor
	}

	return &cursor, nil
}

// IsEmpty returns true if the cursor has no position.
func (c *Cursor) IsEmpty() bool {
	return c == nil || c.StartPageToken == ""
}
