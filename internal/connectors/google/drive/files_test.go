package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

func TestListFiles_FollowsPages(t *testing.T) {
	var mu sync.Mutex
	var queries []string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/drive/v3/files", r.URL.Path)
		mu.Lock()
		queries = append(queries, r.URL.Query().Get("q"))
		mu.Unlock()

		switch r.URL.Query().Get("pageToken") {
		case "":
			writeJSON(w, map[string]any{
				"files":         []any{fileJSON("1", "a.txt", "text/plain"), fileJSON("2", "b.txt", "text/plain")},
				"nextPageToken": "p2",
			})
		case "p2":
			writeJSON(w, map[string]any{"files": []any{fileJSON("3", "c.txt", "text/plain")}})
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	})

	files, err := client.ListFiles(context.Background(), ListOptions{Query: Contains("name", ".txt")})
	require.NoError(t, err)

	require.Len(t, files, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{files[0].ID, files[1].ID, files[2].ID})
	assert.Equal(t, "a.txt", files[0].Title)
	for _, q := range queries {
		assert.Equal(t, "name contains '.txt' and trashed = false", q)
	}
}

func TestListFiles_MaxResults(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, map[string]any{
			"files":         []any{fileJSON("1", "a", "text/plain"), fileJSON("2", "b", "text/plain")},
			"nextPageToken": "more",
		})
	})

	files, err := client.ListFiles(context.Background(), ListOptions{MaxResults: 1})
	require.NoError(t, err)

	assert.Len(t, files, 1)
	assert.Equal(t, 1, calls)
}

func TestListFiles_IncludeTrashed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("q"))
		writeJSON(w, map[string]any{"files": []any{}})
	})

	files, err := client.ListFiles(context.Background(), ListOptions{IncludeTrashed: true})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGetFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drive/v3/files/abc", r.URL.Path)
		writeJSON(w, map[string]any{
			"id":           "abc",
			"name":         "Budget",
			"mimeType":     MimeTypeGoogleSheet,
			"parents":      []string{"root"},
			"size":         "42",
			"modifiedTime": "2024-05-01T10:00:00.000Z",
			"webViewLink":  "https://docs.google.com/spreadsheets/d/abc/edit",
			"properties":   map[string]string{"team": "ops"},
		})
	})

	f, err := client.GetFile(context.Background(), "abc")
	require.NoError(t, err)

	assert.Equal(t, "Budget", f.Title)
	assert.Equal(t, int64(42), f.Size)
	assert.Equal(t, []string{"root"}, f.Parents)
	assert.Equal(t, 2024, f.ModifiedTime.Year())
	assert.Equal(t, "ops", f.Properties["team"])
	assert.False(t, f.IsFolder())
}

func TestGetFile_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "notFound")
	})

	_, err := client.GetFile(context.Background(), "missing")
	assert.ErrorIs(t, err, google.ErrNotFound)
	assert.True(t, google.IsNotFound(err))
}

// readUpload splits a multipart upload into its metadata and content.
func readUpload(t *testing.T, r *http.Request) (map[string]any, []byte) {
	t.Helper()

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(mediaType, "multipart/"), mediaType)

	mr := multipart.NewReader(r.Body, params["boundary"])

	part, err := mr.NextPart()
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.NewDecoder(part).Decode(&meta))

	part, err = mr.NextPart()
	require.NoError(t, err)
	content, err := io.ReadAll(part)
	require.NoError(t, err)

	return meta, content
}

func TestUploadFile_Convert(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/upload/")
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))

		meta, content := readUpload(t, r)
		assert.Equal(t, "data.csv", meta["name"])
		assert.Equal(t, MimeTypeGoogleSheet, meta["mimeType"])
		assert.Equal(t, []any{"folder1"}, meta["parents"])
		assert.Equal(t, "a,b\n1,2\n", string(content))

		writeJSON(w, fileJSON("new1", "data.csv", MimeTypeGoogleSheet, "folder1"))
	})

	target, ok := ConversionTarget("text/csv")
	require.True(t, ok)

	f, err := client.UploadFile(context.Background(), UploadRequest{
		ParentID:  "folder1",
		Title:     "data.csv",
		MimeType:  "text/csv",
		ConvertTo: target,
		Body:      strings.NewReader("a,b\n1,2\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "new1", f.ID)
	assert.Equal(t, MimeTypeGoogleSheet, f.MimeType)
}

func TestUploadFile_InvalidInput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.UploadFile(context.Background(), UploadRequest{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDownloadFile_ExportsWorkspaceFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/drive/v3/files/doc1":
			writeJSON(w, fileJSON("doc1", "Notes", MimeTypeGoogleDoc))
		case "/drive/v3/files/doc1/export":
			assert.Equal(t, ExportMimeText, r.URL.Query().Get("mimeType"))
			_, _ = io.WriteString(w, "hello world")
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	var buf bytes.Buffer
	mimeType, err := client.DownloadFile(context.Background(), "doc1", &buf, "")
	require.NoError(t, err)

	assert.Equal(t, ExportMimeText, mimeType)
	assert.Equal(t, "hello world", buf.String())
}

func TestDownloadFile_Binary(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drive/v3/files/bin1", r.URL.Path)
		if r.URL.Query().Get("alt") == "media" {
			_, _ = w.Write([]byte{0x1, 0x2, 0x3})
			return
		}
		writeJSON(w, fileJSON("bin1", "blob.bin", "application/octet-stream"))
	})

	var buf bytes.Buffer
	mimeType, err := client.DownloadFile(context.Background(), "bin1", &buf, "")
	require.NoError(t, err)

	assert.Equal(t, "application/octet-stream", mimeType)
	assert.Equal(t, []byte{0x1, 0x2, 0x3}, buf.Bytes())
}

func TestDownloadFile_RejectsExportOfBinary(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, fileJSON("bin1", "blob.bin", "application/pdf"))
	})

	_, err := client.DownloadFile(context.Background(), "bin1", io.Discard, ExportMimeText)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestMoveFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, fileJSON("f1", "a.txt", "text/plain", "old1", "old2"))
		case http.MethodPatch:
			assert.Equal(t, "new", r.URL.Query().Get("addParents"))
			assert.Equal(t, "old1,old2", r.URL.Query().Get("removeParents"))
			writeJSON(w, fileJSON("f1", "a.txt", "text/plain", "new"))
		}
	})

	f, err := client.MoveFile(context.Background(), "f1", "new")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, f.Parents)
}

func TestRenameFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "renamed.txt", body["name"])
		writeJSON(w, fileJSON("f1", "renamed.txt", "text/plain"))
	})

	f, err := client.RenameFile(context.Background(), "f1", "renamed.txt")
	require.NoError(t, err)
	assert.Equal(t, "renamed.txt", f.Title)

	_, err = client.RenameFile(context.Background(), "f1", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTrashAndUntrash(t *testing.T) {
	var bodies []map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		writeJSON(w, fileJSON("f1", "a", "text/plain"))
	})

	require.NoError(t, client.TrashFile(context.Background(), "f1"))
	require.NoError(t, client.UntrashFile(context.Background(), "f1"))

	require.Len(t, bodies, 2)
	assert.Equal(t, true, bodies[0]["trashed"])
	assert.Equal(t, false, bodies[1]["trashed"])
}

func TestCopyFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drive/v3/files/f1/copy", r.URL.Path)
		writeJSON(w, fileJSON("f2", "Copy", "text/plain", "dest"))
	})

	f, err := client.CopyFile(context.Background(), "f1", "dest", "Copy")
	require.NoError(t, err)
	assert.Equal(t, "f2", f.ID)
}

func TestDeleteFile_MissingIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		writeError(w, http.StatusNotFound, "notFound")
	})

	assert.NoError(t, client.DeleteFile(context.Background(), "gone"))
}

func TestDeleteFile_Forbidden(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusForbidden, "insufficientFilePermissions")
	})

	err := client.DeleteFile(context.Background(), "f1")
	assert.ErrorIs(t, err, google.ErrForbidden)
}

func TestEnsureFolderPath_CreatesMissing(t *testing.T) {
	var created []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query().Get("q")
			if strings.Contains(q, "name = 'a'") {
				writeJSON(w, map[string]any{"files": []any{fileJSON("id-a", "a", MimeTypeFolder, "root")}})
				return
			}
			writeJSON(w, map[string]any{"files": []any{}})
		case http.MethodPost:
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			name := body["name"].(string)
			created = append(created, name)
			assert.Equal(t, MimeTypeFolder, body["mimeType"])
			writeJSON(w, fileJSON("id-"+name, name, MimeTypeFolder))
		}
	})

	f, err := client.EnsureFolderPath(context.Background(), "", "a/b/c")
	require.NoError(t, err)

	assert.Equal(t, "id-c", f.ID)
	assert.Equal(t, []string{"b", "c"}, created)
}

func TestEnsureFolderPath_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := client.EnsureFolderPath(context.Background(), "", "/")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
