package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/connectors/google/drive"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Work with Google Drive files",
	Long: `List, find, transfer and organise Google Drive files.

Files may be given as IDs, Drive or Docs URLs, or gdrive://files/<id> URIs.`,
}

var driveLsCmd = &cobra.Command{
	Use:   "ls [folder]",
	Short: "List the files in a folder (default My Drive)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDriveLs,
}

var driveFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Search for files",
	Long: `Search for files by name, MIME type, property or a raw Drive query.

Examples:
  gapps drive find --name report.pdf
  gapps drive find --name-contains budget --mime application/vnd.google-apps.spreadsheet
  gapps drive find --property project=apollo
  gapps drive find --query "modifiedTime > '2024-01-01T00:00:00'"`,
	Args: cobra.NoArgs,
	RunE: runDriveFind,
}

var driveGetCmd = &cobra.Command{
	Use:   "get [file]",
	Short: "Show file metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runDriveGet,
}

var driveMkdirCmd = &cobra.Command{
	Use:   "mkdir [name|path]",
	Short: "Create a folder",
	Long: `Create a folder. With -p the argument is a slash separated path whose
missing folders are created; existing folders are reused.`,
	Args: cobra.ExactArgs(1),
	RunE: runDriveMkdir,
}

var driveMvCmd = &cobra.Command{
	Use:   "mv [file] [folder]",
	Short: "Move a file into a folder",
	Args:  cobra.ExactArgs(2),
	RunE:  runDriveMv,
}

var driveRenameCmd = &cobra.Command{
	Use:   "rename [file] [title]",
	Short: "Rename a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runDriveRename,
}

var driveCpCmd = &cobra.Command{
	Use:   "cp [file]",
	Short: "Copy a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDriveCp,
}

var driveRmCmd = &cobra.Command{
	Use:   "rm [file]...",
	Short: "Delete files permanently, or move them to the trash with --trash",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDriveRm,
}

var driveRestoreCmd = &cobra.Command{
	Use:   "restore [file]...",
	Short: "Restore files from the trash",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDriveRestore,
}

var driveTreeCmd = &cobra.Command{
	Use:   "tree [folder]",
	Short: "Print every file below a folder",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDriveTree,
}

var driveChangesCmd = &cobra.Command{
	Use:   "changes",
	Short: "List changes since a cursor",
	Long: `Without --cursor, print a cursor for the current end of the changes
feed. With --cursor, list every change since then and print the next cursor.`,
	Args: cobra.NoArgs,
	RunE: runDriveChanges,
}

// Flags.
var (
	driveMax          int
	driveTrashed      bool
	driveFindName     string
	driveFindContains string
	driveFindMime     string
	driveFindProperty string
	driveFindQuery    string
	driveFindParent   string
	driveParent       string
	driveParents      bool
	driveTitle        string
	driveTrash        bool
	driveDepth        int
	driveCursor       string
)

func init() {
	driveLsCmd.Flags().IntVar(&driveMax, "max", 0, "Maximum number of files (0 lists all)")
	driveLsCmd.Flags().BoolVar(&driveTrashed, "trashed", false, "Include trashed files")

	driveFindCmd.Flags().StringVar(&driveFindName, "name", "", "Exact file name")
	driveFindCmd.Flags().StringVar(&driveFindContains, "name-contains", "", "Name contains text")
	driveFindCmd.Flags().StringVar(&driveFindMime, "mime", "", "MIME type")
	driveFindCmd.Flags().StringVar(&driveFindProperty, "property", "", "Public property key=value")
	driveFindCmd.Flags().StringVar(&driveFindQuery, "query", "", "Raw Drive query, combined with the other filters")
	driveFindCmd.Flags().StringVar(&driveFindParent, "parent", "", "Only direct children of this folder")
	driveFindCmd.Flags().IntVar(&driveMax, "max", 0, "Maximum number of files (0 lists all)")
	driveFindCmd.Flags().BoolVar(&driveTrashed, "trashed", false, "Include trashed files")

	driveMkdirCmd.Flags().StringVar(&driveParent, "parent", "", "Parent folder (default My Drive)")
	driveMkdirCmd.Flags().BoolVarP(&driveParents, "parents", "p", false, "Create missing folders along the path")

	driveCpCmd.Flags().StringVar(&driveParent, "parent", "", "Destination folder (default same as source)")
	driveCpCmd.Flags().StringVar(&driveTitle, "name", "", "Title of the copy")

	driveRmCmd.Flags().BoolVar(&driveTrash, "trash", false, "Move to the trash instead of deleting")

	driveTreeCmd.Flags().IntVar(&driveDepth, "depth", 0, "Maximum depth (0 is unlimited)")

	driveChangesCmd.Flags().StringVar(&driveCursor, "cursor", "", "Cursor printed by a previous call")

	driveCmd.AddCommand(driveLsCmd)
	driveCmd.AddCommand(driveFindCmd)
	driveCmd.AddCommand(driveGetCmd)
	driveCmd.AddCommand(driveMkdirCmd)
	driveCmd.AddCommand(driveMvCmd)
	driveCmd.AddCommand(driveRenameCmd)
	driveCmd.AddCommand(driveCpCmd)
	driveCmd.AddCommand(driveRmCmd)
	driveCmd.AddCommand(driveRestoreCmd)
	driveCmd.AddCommand(driveTreeCmd)
	driveCmd.AddCommand(driveChangesCmd)
	rootCmd.AddCommand(driveCmd)
}

// openDrive opens a session and returns its Drive client.
func openDrive(ctx context.Context) (*drive.Client, error) {
	session, err := openSession(ctx)
	if err != nil {
		return nil, err
	}
	return session.Drive, nil
}

// fileIDs converts file arguments to IDs.
func fileIDs(args []string) ([]string, error) {
	ids := make([]string, len(args))
	for i, arg := range args {
		id, err := drive.FileIDFromURL(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid file %q: %w", arg, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func fileID(arg string) (string, error) {
	ids, err := fileIDs([]string{arg})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// folderID converts an optional folder argument; empty means My Drive.
func folderID(arg string) (string, error) {
	if arg == "" || arg == "root" {
		return arg, nil
	}
	return fileID(arg)
}

var fileHeaders = []string{"ID", "NAME", "TYPE", "SIZE", "MODIFIED"}

func fileRow(f *domain.File) []string {
	kind := f.MimeType
	if f.IsFolder() {
		kind = "folder"
	}
	size := ""
	if f.Size > 0 {
		size = strconv.FormatInt(f.Size, 10)
	}
	modified := ""
	if !f.ModifiedTime.IsZero() {
		modified = f.ModifiedTime.Local().Format("2006-01-02 15:04")
	}
	return []string{f.ID, f.Title, kind, size, modified}
}

func renderFiles(cmd *cobra.Command, files []domain.File) error {
	rows := make([][]string, len(files))
	for i := range files {
		rows[i] = fileRow(&files[i])
	}
	return render(cmd, fileHeaders, rows, files)
}

func runDriveLs(cmd *cobra.Command, args []string) error {
	var arg string
	if len(args) == 1 {
		arg = args[0]
	}
	parent, err := folderID(arg)
	if err != nil {
		return err
	}
	if parent == "" {
		parent = "root"
	}

	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	files, err := client.ListFiles(ctx, drive.ListOptions{
		Query:          drive.ChildrenOf(parent),
		OrderBy:        "folder,name",
		MaxResults:     driveMax,
		IncludeTrashed: driveTrashed,
	})
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}
	return renderFiles(cmd, files)
}

// findQuery builds the query for drive find from its flags.
func findQuery() (drive.Query, error) {
	var terms []drive.Query
	if driveFindName != "" {
		terms = append(terms, drive.TitleIs(driveFindName))
	}
	if driveFindContains != "" {
		terms = append(terms, drive.Contains("name", driveFindContains))
	}
	if driveFindMime != "" {
		terms = append(terms, drive.Eq("mimeType", driveFindMime))
	}
	if driveFindProperty != "" {
		key, value, ok := strings.Cut(driveFindProperty, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("--property wants key=value, got %q", driveFindProperty)
		}
		terms = append(terms, drive.HasProperty(key, value))
	}
	if driveFindParent != "" {
		parent, err := folderID(driveFindParent)
		if err != nil {
			return nil, err
		}
		terms = append(terms, drive.ChildrenOf(parent))
	}
	if driveFindQuery != "" {
		terms = append(terms, drive.Raw(driveFindQuery))
	}
	if len(terms) == 0 {
		return nil, errors.New("give at least one of --name, --name-contains, --mime, --property, --parent or --query")
	}
	return drive.And(terms...), nil
}

func runDriveFind(cmd *cobra.Command, _ []string) error {
	q, err := findQuery()
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	files, err := client.ListFiles(ctx, drive.ListOptions{
		Query:          q,
		MaxResults:     driveMax,
		IncludeTrashed: driveTrashed,
	})
	if err != nil {
		return fmt.Errorf("failed to search files: %w", err)
	}
	return renderFiles(cmd, files)
}

func runDriveGet(cmd *cobra.Command, args []string) error {
	id, err := fileID(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	file, err := client.GetFile(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}
	if format() == FormatJSON {
		return writeJSON(cmd.OutOrStdout(), file)
	}

	rows := [][]string{
		{"ID", file.ID},
		{"Name", file.Title},
		{"Type", file.MimeType},
		{"Parents", strings.Join(file.Parents, ", ")},
		{"Size", strconv.FormatInt(file.Size, 10)},
		{"Created", file.CreatedTime.Local().Format("2006-01-02 15:04:05")},
		{"Modified", file.ModifiedTime.Local().Format("2006-01-02 15:04:05")},
		{"URL", drive.ResolveWebURL(file)},
		{"Trashed", strconv.FormatBool(file.Trashed)},
	}
	for key, value := range file.Properties {
		rows = append(rows, []string{"Property " + key, value})
	}
	return render(cmd, nil, rows, file)
}

func runDriveMkdir(cmd *cobra.Command, args []string) error {
	parent, err := folderID(driveParent)
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	var folder *domain.File
	if driveParents {
		folder, err = client.EnsureFolderPath(ctx, parent, args[0])
	} else {
		if strings.Contains(args[0], "/") {
			return errors.New("name contains '/'; use -p to create a path")
		}
		folder, err = client.CreateFolder(ctx, parent, args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	cmd.Printf("%s\t%s\n", folder.ID, folder.Title)
	return nil
}

func runDriveMv(cmd *cobra.Command, args []string) error {
	ids, err := fileIDs(args)
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	file, err := client.MoveFile(ctx, ids[0], ids[1])
	if err != nil {
		return fmt.Errorf("failed to move file: %w", err)
	}
	cmd.Printf("Moved %s into %s\n", file.Title, ids[1])
	return nil
}

func runDriveRename(cmd *cobra.Command, args []string) error {
	id, err := fileID(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	file, err := client.RenameFile(ctx, id, args[1])
	if err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	cmd.Printf("Renamed %s to %s\n", file.ID, file.Title)
	return nil
}

func runDriveCp(cmd *cobra.Command, args []string) error {
	id, err := fileID(args[0])
	if err != nil {
		return err
	}
	parent, err := folderID(driveParent)
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	file, err := client.CopyFile(ctx, id, parent, driveTitle)
	if err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	cmd.Printf("%s\t%s\n", file.ID, file.Title)
	return nil
}

func runDriveRm(cmd *cobra.Command, args []string) error {
	ids, err := fileIDs(args)
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range ids {
		if driveTrash {
			err = client.TrashFile(ctx, id)
		} else {
			err = client.DeleteFile(ctx, id)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if driveTrash {
			cmd.Printf("Trashed %s\n", id)
		} else {
			cmd.Printf("Deleted %s\n", id)
		}
	}
	return errors.Join(errs...)
}

func runDriveRestore(cmd *cobra.Command, args []string) error {
	ids, err := fileIDs(args)
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range ids {
		if err := client.UntrashFile(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		cmd.Printf("Restored %s\n", id)
	}
	return errors.Join(errs...)
}

func runDriveTree(cmd *cobra.Command, args []string) error {
	root := "root"
	if len(args) == 1 {
		id, err := fileID(args[0])
		if err != nil {
			return err
		}
		root = id
	}
	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	var files []domain.File
	var rows [][]string
	err = client.WalkFolder(ctx, root, func(path string, f *domain.File) error {
		depth := strings.Count(path, "/") + 1
		if f.IsFolder() {
			path += "/"
		}
		files = append(files, *f)
		rows = append(rows, []string{f.ID, path})
		if driveDepth > 0 && depth == driveDepth && f.IsFolder() {
			return drive.SkipDir
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk folder: %w", err)
	}
	return render(cmd, []string{"ID", "PATH"}, rows, files)
}

func runDriveChanges(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	if driveCursor == "" {
		cursor, err := client.StartCursor(ctx)
		if err != nil {
			return fmt.Errorf("failed to get cursor: %w", err)
		}
		cmd.Println(cursor.Encode())
		return nil
	}

	cursor, err := drive.DecodeCursor(driveCursor)
	if err != nil {
		return err
	}
	changes, next, err := client.ListChanges(ctx, cursor)
	if errors.Is(err, google.ErrSyncTokenExpired) {
		return fmt.Errorf("cursor expired; run 'gapps drive changes' without --cursor to start over: %w", err)
	}
	if err != nil {
		return fmt.Errorf("failed to list changes: %w", err)
	}

	if format() == FormatJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"changes": changes,
			"cursor":  next.Encode(),
		})
	}

	rows := make([][]string, len(changes))
	for i, ch := range changes {
		action, title := "changed", ""
		if ch.Removed || ch.File == nil {
			action = "removed"
		} else {
			title = ch.File.Title
			if ch.File.Trashed {
				action = "trashed"
			}
		}
		rows[i] = []string{ch.Time.Local().Format("2006-01-02 15:04:05"), action, ch.FileID, title}
	}
	if err := render(cmd, []string{"TIME", "CHANGE", "ID", "NAME"}, rows, changes); err != nil {
		return err
	}
	cmd.PrintErrf("Next cursor: %s\n", next.Encode())
	return nil
}
