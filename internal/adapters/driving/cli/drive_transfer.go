package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google/drive"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/logger"
)

var driveUploadCmd = &cobra.Command{
	Use:   "upload [local-file]",
	Short: "Upload a file",
	Long: `Upload a local file to Drive.

With --convert the file becomes a Google Doc, Sheet or Slides deck when its
type allows it. With --watch the command keeps running and uploads the file
again every time it is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runDriveUpload,
}

var driveDownloadCmd = &cobra.Command{
	Use:   "download [file] [destination]",
	Short: "Download or export a file",
	Long: `Download a file. Google Docs, Sheets, Slides and Drawings are exported,
by default to text, CSV, text and PNG; pick another format with --export
(pdf, csv, txt, xlsx, docx, png or a MIME type).

The destination defaults to the file title in the current directory; "-"
writes to stdout.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDriveDownload,
}

// Flags.
var (
	uploadParent   string
	uploadTitle    string
	uploadMime     string
	uploadConvert  bool
	uploadWatch    bool
	uploadProps    []string
	downloadExport string
)

// watchDebounce groups the burst of events one save produces.
var watchDebounce = 500 * time.Millisecond

// exportAliases maps --export shorthands to MIME types.
var exportAliases = map[string]string{
	"pdf":  drive.ExportMimePDF,
	"csv":  drive.ExportMimeCSV,
	"txt":  drive.ExportMimeText,
	"xlsx": drive.ExportMimeXLSX,
	"docx": drive.ExportMimeDOCX,
	"png":  drive.ExportMimePNG,
}

func init() {
	driveUploadCmd.Flags().StringVar(&uploadParent, "parent", "", "Destination folder (default My Drive)")
	driveUploadCmd.Flags().StringVar(&uploadTitle, "name", "", "Title in Drive (default local file name)")
	driveUploadCmd.Flags().StringVar(&uploadMime, "mime", "", "Content type (default from extension)")
	driveUploadCmd.Flags().BoolVar(&uploadConvert, "convert", false, "Convert to the matching Google format")
	driveUploadCmd.Flags().BoolVar(&uploadWatch, "watch", false, "Upload again whenever the file changes")
	driveUploadCmd.Flags().StringSliceVar(&uploadProps, "property", nil, "Public property key=value (repeatable)")

	driveDownloadCmd.Flags().StringVar(&downloadExport, "export", "", "Export format for Google files")

	driveCmd.AddCommand(driveUploadCmd)
	driveCmd.AddCommand(driveDownloadCmd)
}

// uploadRequest builds the upload request for a local file. The caller sets Body.
func uploadRequest(path string) (drive.UploadRequest, error) {
	parent, err := folderID(uploadParent)
	if err != nil {
		return drive.UploadRequest{}, err
	}
	req := drive.UploadRequest{
		ParentID: parent,
		Title:    uploadTitle,
		MimeType: uploadMime,
	}
	if req.Title == "" {
		req.Title = filepath.Base(path)
	}
	if req.MimeType == "" {
		req.MimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
		// Drop parameters such as charset=utf-8.
		if i := strings.IndexByte(req.MimeType, ';'); i >= 0 {
			req.MimeType = strings.TrimSpace(req.MimeType[:i])
		}
	}
	if uploadConvert {
		target, ok := drive.ConversionTarget(req.MimeType)
		if !ok {
			return drive.UploadRequest{}, fmt.Errorf("cannot convert %q files: %w", req.MimeType, domain.ErrUnsupportedType)
		}
		req.ConvertTo = target
	}
	if len(uploadProps) > 0 {
		req.Properties = make(map[string]string, len(uploadProps))
		for _, p := range uploadProps {
			key, value, ok := strings.Cut(p, "=")
			if !ok || key == "" {
				return drive.UploadRequest{}, fmt.Errorf("--property wants key=value, got %q", p)
			}
			req.Properties[key] = value
		}
	}
	return req, nil
}

func runDriveUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	req, err := uploadRequest(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	req.Body = f
	file, err := client.UploadFile(ctx, req)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to upload: %w", err)
	}
	cmd.Printf("%s\t%s\n", file.ID, file.Title)

	if !uploadWatch {
		return nil
	}

	cmd.PrintErrf("Watching %s; press Ctrl+C to stop.\n", path)
	err = watchFile(ctx, path, func() error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := client.UpdateContent(ctx, file.ID, f, req.MimeType); err != nil {
			return err
		}
		cmd.PrintErrf("%s uploaded %s\n", time.Now().Format("15:04:05"), path)
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchFile calls sync after path is written, until ctx is done. The parent
// directory is watched so editors that save by renaming are seen too. Sync
// errors are logged and watching continues.
func watchFile(ctx context.Context, path string, sync func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			logger.Debug("Watch event: %s", event)
			pending = time.After(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case <-pending:
			pending = nil
			if err := sync(); err != nil {
				logger.Error("Upload failed: %v", err)
			}
		}
	}
}

// exportMime resolves --export to a MIME type.
func exportMime(value string) string {
	if m, ok := exportAliases[strings.ToLower(value)]; ok {
		return m
	}
	return value
}

// extensionFor returns the file extension for an exported MIME type.
func extensionFor(mimeType string) string {
	for ext, m := range exportAliases {
		if m == mimeType {
			return "." + ext
		}
	}
	return ""
}

func runDriveDownload(cmd *cobra.Command, args []string) error {
	id, err := fileID(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	dest := ""
	if len(args) == 2 {
		dest = args[1]
	}
	export := exportMime(downloadExport)

	if dest == "-" {
		if _, err := client.DownloadFile(ctx, id, cmd.OutOrStdout(), export); err != nil {
			return fmt.Errorf("failed to download: %w", err)
		}
		return nil
	}

	if dest == "" {
		file, err := client.GetFile(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get file: %w", err)
		}
		dest = filepath.Base(file.Title)
		if drive.IsWorkspaceType(file.MimeType) {
			target := export
			if target == "" {
				target, _ = client.Config().ExportFormat(file.MimeType)
			}
			dest += extensionFor(target)
		}
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	written, err := client.DownloadFile(ctx, id, out, export)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("failed to download: %w", err)
	}
	cmd.Printf("Saved %s (%s)\n", dest, written)
	return nil
}
