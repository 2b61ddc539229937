package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/connectors/google/batch"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

// ListOptions controls ListFiles.
type ListOptions struct {
	// Query filters the files. Nil lists everything visible.
	Query Query
	// OrderBy is a comma separated sort key list, e.g. "folder,name".
	OrderBy string
	// PageSize overrides the configured page size.
	PageSize int64
	// MaxResults stops listing once this many files were collected. Zero means all.
	MaxResults int
	// IncludeTrashed keeps trashed files in the result.
	IncludeTrashed bool
}

// UploadRequest describes a new file.
type UploadRequest struct {
	ParentID string
	Title    string
	// MimeType is the content type of Body. Empty lets Drive detect it.
	MimeType string
	// ConvertTo is a Workspace MIME type to convert the upload into.
	ConvertTo  string
	Body       io.Reader
	Properties map[string]string
}

// ListFiles lists files matching the options, following every page.
func (c *Client) ListFiles(ctx context.Context, opts ListOptions) ([]domain.File, error) {
	q := opts.Query
	if !opts.IncludeTrashed {
		q = And(q, NotTrashed())
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = c.cfg.PageSize
	}

	bopts := c.batchOptions()
	if opts.MaxResults > 0 {
		bopts.MaxPages = int((int64(opts.MaxResults) + pageSize - 1) / pageSize)
	}

	files, err := batch.Collect(ctx, c.listRequest(Render(q), opts.OrderBy, pageSize), bopts)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", google.WrapError(err))
	}
	if opts.MaxResults > 0 && len(files) > opts.MaxResults {
		files = files[:opts.MaxResults]
	}
	return files, nil
}

// listRequest returns a paginated files.list call for use with the batch package.
func (c *Client) listRequest(q, orderBy string, pageSize int64) batch.Request[domain.File] {
	return func(ctx context.Context, pageToken string) (batch.Page[domain.File], error) {
		call := c.files.Files.List().
			PageSize(pageSize).
			Fields(googleapi.Field(c.cfg.listFields())).
			Context(ctx)
		if q != "" {
			call = call.Q(q)
		}
		if orderBy != "" {
			call = call.OrderBy(orderBy)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		if c.cfg.SupportsAllDrives {
			call = call.SupportsAllDrives(true).IncludeItemsFromAllDrives(true)
		}

		list, err := call.Do()
		if err != nil {
			return batch.Page[domain.File]{}, err
		}

		page := batch.Page[domain.File]{
			Items:         make([]domain.File, 0, len(list.Files)),
			NextPageToken: list.NextPageToken,
		}
		for _, f := range list.Files {
			page.Items = append(page.Items, toFile(f))
		}
		return page, nil
	}
}

// GetFile returns the metadata of one file.
func (c *Client) GetFile(ctx context.Context, id string) (*domain.File, error) {
	var f *drive.File
	err := c.call(ctx, "files.get "+id, func() (err error) {
		f, err = c.files.Files.Get(id).
			Fields(c.fileFields()).
			SupportsAllDrives(c.cfg.SupportsAllDrives).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	file := toFile(f)
	return &file, nil
}

// FindByTitle returns the untrashed children of parentID named title.
// An empty parentID searches everywhere.
func (c *Client) FindByTitle(ctx context.Context, parentID, title string) ([]domain.File, error) {
	q := TitleIs(title)
	if parentID != "" {
		q = And(ChildrenOf(parentID), q)
	}
	return c.ListFiles(ctx, ListOptions{Query: q})
}

// FindByProperty returns the untrashed files carrying the public property key=value.
func (c *Client) FindByProperty(ctx context.Context, key, value string) ([]domain.File, error) {
	return c.ListFiles(ctx, ListOptions{Query: HasProperty(key, value)})
}

// CreateFolder creates a folder under parentID. An empty parentID uses My Drive root.
func (c *Client) CreateFolder(ctx context.Context, parentID, title string) (*domain.File, error) {
	meta := &drive.File{Name: title, MimeType: MimeTypeFolder}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	var f *drive.File
	err := c.call(ctx, "files.create folder "+title, func() (err error) {
		f, err = c.files.Files.Create(meta).
			Fields(c.fileFields()).
			SupportsAllDrives(c.cfg.SupportsAllDrives).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create folder %q: %w", title, err)
	}
	file := toFile(f)
	return &file, nil
}

// EnsureFolderPath walks a slash separated path below parentID, creating
// missing folders, and returns the last one. When several folders share a
// name the first match is used.
func (c *Client) EnsureFolderPath(ctx context.Context, parentID, path string) (*domain.File, error) {
	var current *domain.File
	for _, name := range strings.Split(path, "/") {
		if name == "" {
			continue
		}

		matches, err := c.ListFiles(ctx, ListOptions{
			Query:      And(ChildrenOf(parentOrRoot(parentID)), TitleIs(name), IsFolder()),
			MaxResults: 1,
		})
		if err != nil {
			return nil, err
		}

		if len(matches) > 0 {
			current = &matches[0]
		} else {
			current, err = c.CreateFolder(ctx, parentID, name)
			if err != nil {
				return nil, err
			}
		}
		parentID = current.ID
	}

	if current == nil {
		return nil, fmt.Errorf("ensure folder path %q: %w", path, domain.ErrInvalidInput)
	}
	return current, nil
}

func parentOrRoot(id string) string {
	if id == "" {
		return "root"
	}
	return id
}

// UploadFile creates a file with content.
func (c *Client) UploadFile(ctx context.Context, req UploadRequest) (*domain.File, error) {
	if req.Title == "" || req.Body == nil {
		return nil, fmt.Errorf("upload file: %w", domain.ErrInvalidInput)
	}

	meta := &drive.File{Name: req.Title, Properties: req.Properties}
	if req.ParentID != "" {
		meta.Parents = []string{req.ParentID}
	}
	if req.ConvertTo != "" {
		meta.MimeType = req.ConvertTo
	} else if req.MimeType != "" {
		meta.MimeType = req.MimeType
	}

	var media []googleapi.MediaOption
	if req.MimeType != "" {
		media = append(media, googleapi.ContentType(req.MimeType))
	}

	var f *drive.File
	err := c.call(ctx, "files.create "+req.Title, func() (err error) {
		f, err = c.files.Files.Create(meta).
			Media(req.Body, media...).
			Fields(c.fileFields()).
			SupportsAllDrives(c.cfg.SupportsAllDrives).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upload %q: %w", req.Title, err)
	}
	file := toFile(f)
	return &file, nil
}

// UpdateContent replaces the content of an existing file.
func (c *Client) UpdateContent(ctx context.Context, id string, body io.Reader, mimeType string) (*domain.File, error) {
	var media []googleapi.MediaOption
	if mimeType != "" {
		media = append(media, googleapi.ContentType(mimeType))
	}

	var f *drive.File
	err := c.call(ctx, "files.update content "+id, func() (err error) {
		f, err = c.files.Files.Update(id, &drive.File{}).
			Media(body, media...).
			Fields(c.fileFields()).
			SupportsAllDrives(c.cfg.SupportsAllDrives).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update content of %s: %w", id, err)
	}
	file := toFile(f)
	return &file, nil
}

// DownloadFile writes the content of a file to w and returns the MIME type
// written. Workspace files are exported, to exportMime when given or to the
// configured default format otherwise. Binary files ignore exportMime only
// when it is empty.
func (c *Client) DownloadFile(ctx context.Context, id string, w io.Writer, exportMime string) (string, error) {
	file, err := c.GetFile(ctx, id)
	if err != nil {
		return "", err
	}
	if file.IsFolder() {
		return "", fmt.Errorf("download %s: %w", id, domain.ErrUnsupportedType)
	}

	var resp *http.Response
	mimeType := file.MimeType
	if IsWorkspaceType(file.MimeType) {
		if exportMime == "" {
			format, ok := c.cfg.ExportFormat(file.MimeType)
			if !ok {
				return "", fmt.Errorf("download %s: no export format for %s: %w", id, file.MimeType, domain.ErrUnsupportedType)
			}
			exportMime = format
		}
		mimeType = exportMime
		err = c.call(ctx, "files.export "+id, func() (err error) {
			resp, err = c.files.Files.Export(id, exportMime).Context(ctx).Download()
			return err
		})
	} else {
		if exportMime != "" && exportMime != file.MimeType {
			return "", fmt.Errorf("download %s: cannot export %s: %w", id, file.MimeType, domain.ErrUnsupportedType)
		}
		err = c.call(ctx, "files.get media "+id, func() (err error) {
			resp, err = c.files.Files.Get(id).
				SupportsAllDrives(c.cfg.SupportsAllDrives).
				Context(ctx).
				Download()
			return err
		})
	}
	if err != nil {
		return "", fmt.Errorf("download %s: %w", id, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("download %s: %w", id, err)
	}
	return mimeType, nil
}

func (c *Client) update(ctx context.Context, op, id string, meta *drive.File, addParents, removeParents string) (*domain.File, error) {
	var f *drive.File
	err := c.call(ctx, op+" "+id, func() (err error) {
		call := c.files.Files.Update(id, meta).
			Fields(c.fileFields()).
			SupportsAllDrives(c.cfg.SupportsAllDrives).
			Context(ctx)
		if addParents != "" {
			call = call.AddParents(addParents)
		}
		if removeParents != "" {
			call = call.RemoveParents(removeParents)
		}
		f, err = call.Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	file := toFile(f)
	return &file, nil
}

// RenameFile changes the name of a file.
func (c *Client) RenameFile(ctx context.Context, id, title string) (*domain.File, error) {
	if title == "" {
		return nil, fmt.Errorf("rename %s: %w", id, domain.ErrInvalidInput)
	}
	f, err := c.update(ctx, "files.update name", id, &drive.File{Name: title}, "", "")
	if err != nil {
		return nil, fmt.Errorf("rename %s: %w", id, err)
	}
	return f, nil
}

// MoveFile moves a file from all of its current parents into newParentID.
func (c *Client) MoveFile(ctx context.Context, id, newParentID string) (*domain.File, error) {
	current, err := c.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}

	var remove []string
	for _, p := range current.Parents {
		if p != newParentID {
			remove = append(remove, p)
		}
	}

	f, err := c.update(ctx, "files.update parents", id, &drive.File{}, newParentID, strings.Join(remove, ","))
	if err != nil {
		return nil, fmt.Errorf("move %s: %w", id, err)
	}
	return f, nil
}

// CopyFile copies a file. Empty parentID or title keep the source values.
func (c *Client) CopyFile(ctx context.Context, id, parentID, title string) (*domain.File, error) {
	meta := &drive.File{Name: title}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	var f *drive.File
	err := c.call(ctx, "files.copy "+id, func() (err error) {
		f, err = c.files.Files.Copy(id, meta).
			Fields(c.fileFields()).
			SupportsAllDrives(c.cfg.SupportsAllDrives).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("copy %s: %w", id, err)
	}
	file := toFile(f)
	return &file, nil
}

// TrashFile moves a file to the trash.
func (c *Client) TrashFile(ctx context.Context, id string) error {
	if _, err := c.update(ctx, "files.update trash", id, &drive.File{Trashed: true}, "", ""); err != nil {
		return fmt.Errorf("trash %s: %w", id, err)
	}
	return nil
}

// UntrashFile restores a file from the trash.
func (c *Client) UntrashFile(ctx context.Context, id string) error {
	meta := &drive.File{Trashed: false, ForceSendFields: []string{"Trashed"}}
	if _, err := c.update(ctx, "files.update untrash", id, meta, "", ""); err != nil {
		return fmt.Errorf("untrash %s: %w", id, err)
	}
	return nil
}

// DeleteFile permanently deletes a file. Deleting a missing file is not an error.
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	err := c.call(ctx, "files.delete "+id, func() error {
		return c.files.Files.Delete(id).
			SupportsAllDrives(c.cfg.SupportsAllDrives).
			Context(ctx).
			Do()
	})
	if err != nil && !errors.Is(err, google.ErrNotFound) {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}
