package drive

import (
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/connectors/google/batch"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

// StartCursor returns a cursor positioned at the current end of the changes feed.
func (c *Client) StartCursor(ctx context.Context) (*Cursor, error) {
	var token *drive.StartPageToken
	err := c.call(ctx, "changes.getStartPageToken", func() (err error) {
		token, err = c.files.Changes.GetStartPageToken().
			SupportsAllDrives(c.cfg.SupportsAllDrives).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get start page token: %w", err)
	}
	return NewCursor(token.StartPageToken), nil
}

// ListChanges returns every change since the cursor and a cursor for the next
// call. An expired cursor fails with google.ErrSyncTokenExpired; callers then
// start over with StartCursor.
func (c *Client) ListChanges(ctx context.Context, cursor *Cursor) ([]domain.Change, *Cursor, error) {
	if cursor.IsEmpty() {
		return nil, nil, fmt.Errorf("list changes: %w", ErrInvalidCursor)
	}

	var newStart string
	fields := googleapi.Field("nextPageToken, newStartPageToken, changes(fileId, removed, time, file(" + c.cfg.FileFields + "))")

	req := func(ctx context.Context, pageToken string) (batch.Page[domain.Change], error) {
		if pageToken == "" {
			pageToken = cursor.StartPageToken
		}
		call := c.files.Changes.List(pageToken).
			PageSize(c.cfg.PageSize).
			IncludeRemoved(true).
			Fields(fields).
			Context(ctx)
		if c.cfg.SupportsAllDrives {
			call = call.SupportsAllDrives(true).IncludeItemsFromAllDrives(true)
		}

		list, err := call.Do()
		if err != nil {
			return batch.Page[domain.Change]{}, err
		}
		if list.NewStartPageToken != "" {
			newStart = list.NewStartPageToken
		}

		page := batch.Page[domain.Change]{NextPageToken: list.NextPageToken}
		for _, ch := range list.Changes {
			page.Items = append(page.Items, toChange(ch))
		}
		return page, nil
	}

	changes, err := batch.Collect(ctx, req, c.batchOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("list changes: %w", google.WrapError(err))
	}
	if newStart == "" {
		newStart = cursor.StartPageToken
	}
	return changes, NewCursor(newStart), nil
}

func toChange(ch *drive.Change) domain.Change {
	out := domain.Change{
		FileID:  ch.FileId,
		Removed: ch.Removed,
		Time:    parseTime(ch.Time),
	}
	if ch.File != nil && !ch.Removed {
		f := toFile(ch.File)
		out.File = &f
	}
	return out
}
