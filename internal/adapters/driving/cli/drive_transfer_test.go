package cli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google/drive"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

func TestExportMime(t *testing.T) {
	assert.Equal(t, drive.ExportMimePDF, exportMime("pdf"))
	assert.Equal(t, drive.ExportMimeXLSX, exportMime("XLSX"))
	assert.Equal(t, "application/rtf", exportMime("application/rtf"))
	assert.Equal(t, "", exportMime(""))
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".csv", extensionFor(drive.ExportMimeCSV))
	assert.Equal(t, ".docx", extensionFor(drive.ExportMimeDOCX))
	assert.Equal(t, "", extensionFor("application/x-unknown"))
}

func TestUploadRequest(t *testing.T) {
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	req, err := uploadRequest(filepath.Join("dir", "Index.HTML"))
	require.NoError(t, err)
	assert.Equal(t, "Index.HTML", req.Title)
	assert.Equal(t, "text/html", req.MimeType, "parameters are dropped")
	assert.Empty(t, req.ConvertTo)
	assert.Empty(t, req.ParentID)
}

func TestUploadRequest_ConvertAndProperties(t *testing.T) {
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })
	uploadConvert = true
	uploadMime = "text/csv"
	uploadTitle = "Budget"
	uploadParent = testFolderID
	uploadProps = []string{"team=finance", "year=2026"}

	req, err := uploadRequest("budget.csv")

	require.NoError(t, err)
	assert.Equal(t, "Budget", req.Title)
	assert.Equal(t, testFolderID, req.ParentID)
	assert.Equal(t, drive.MimeTypeGoogleSheet, req.ConvertTo)
	assert.Equal(t, map[string]string{"team": "finance", "year": "2026"}, req.Properties)
}

func TestUploadRequest_Errors(t *testing.T) {
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	uploadConvert = true
	uploadMime = "application/zip"
	_, err := uploadRequest("archive.zip")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	uploadConvert = false
	uploadProps = []string{"=novalue"}
	_, err = uploadRequest("a.txt")
	assert.ErrorContains(t, err, "key=value")
}

func TestDriveCmd_Upload(t *testing.T) {
	var path, uploadType string
	var body []byte
	setupTestServices(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		uploadType = r.URL.Query().Get("uploadType")
		body, _ = io.ReadAll(r.Body)
		writeJSONResponse(w, fileJSON(testFileID, "notes.txt", "text/plain"))
	})
	local := writeTempFile(t, "notes.txt", "hello drive")

	out, err := execute(t, "drive", "upload", local)

	require.NoError(t, err)
	assert.Equal(t, testFileID+"\tnotes.txt\n", out)
	assert.Equal(t, "/upload/drive/v3/files", path)
	assert.Equal(t, "multipart", uploadType)
	assert.Contains(t, string(body), "hello drive")
}

func TestDriveCmd_DownloadToStdout(t *testing.T) {
	setupTestServices(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/files/"+testFileID && r.URL.Query().Get("alt") == "media":
			_, _ = io.WriteString(w, "file body")
		case r.URL.Path == "/files/"+testFileID:
			writeJSONResponse(w, fileJSON(testFileID, "notes.txt", "text/plain"))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.String())
		}
	})

	out, err := execute(t, "drive", "download", testFileID, "-")

	require.NoError(t, err)
	assert.Equal(t, "file body", out)
}

func TestDriveCmd_DownloadExportsToTitle(t *testing.T) {
	var exported string
	setupTestServices(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/export"):
			exported = r.URL.Query().Get("mimeType")
			_, _ = io.WriteString(w, "%PDF")
		default:
			writeJSONResponse(w, fileJSON(testFileID, "Plan", drive.MimeTypeGoogleDoc))
		}
	})
	dir := t.TempDir()
	t.Chdir(dir)

	out, err := execute(t, "drive", "download", testFileID, "--export", "pdf")

	require.NoError(t, err)
	assert.Equal(t, drive.ExportMimePDF, exported)
	assert.Contains(t, out, "Saved Plan.pdf")
	data, err := os.ReadFile(filepath.Join(dir, "Plan.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
}

func TestWatchFile_SyncsAfterWrite(t *testing.T) {
	old := watchDebounce
	watchDebounce = 20 * time.Millisecond
	t.Cleanup(func() { watchDebounce = old })

	path := writeTempFile(t, "data.csv", "a\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	synced := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, func() error {
			calls.Add(1)
			select {
			case synced <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	// Keep writing until the watcher is up and reports the change.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-synced:
			break wait
		case <-ticker.C:
			require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0o600))
		case <-deadline:
			t.Fatal("sync was not called")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("watchFile did not return after cancel")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestWatchFile_IgnoresOtherFiles(t *testing.T) {
	old := watchDebounce
	watchDebounce = 10 * time.Millisecond
	t.Cleanup(func() { watchDebounce = old })

	path := writeTempFile(t, "watched.txt", "x")
	other := filepath.Join(filepath.Dir(path), "other.txt")
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, func() error {
			calls.Add(1)
			return nil
		})
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(other, []byte("y"), 0o600))

	err := <-done
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatchFile_MissingDirectory(t *testing.T) {
	err := watchFile(context.Background(), filepath.Join(t.TempDir(), "gone", "file.txt"), func() error { return nil })
	assert.Error(t, err)
}
