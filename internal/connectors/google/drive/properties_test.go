package drive

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

func TestListProperties(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drive/v2/files/f1/properties", r.URL.Path)
		writeJSON(w, map[string]any{"items": []any{
			map[string]any{"key": "team", "value": "ops", "visibility": "PUBLIC"},
			map[string]any{"key": "sync", "value": "1", "visibility": "PRIVATE"},
		}})
	})

	props, err := client.ListProperties(context.Background(), "f1")
	require.NoError(t, err)

	assert.Equal(t, []domain.Property{
		{Key: "team", Value: "ops", Visibility: domain.VisibilityPublic},
		{Key: "sync", Value: "1", Visibility: domain.VisibilityPrivate},
	}, props)
}

func TestGetProperty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drive/v2/files/f1/properties/team", r.URL.Path)
		assert.Equal(t, "PUBLIC", r.URL.Query().Get("visibility"))
		writeJSON(w, map[string]any{"key": "team", "value": "ops", "visibility": "PUBLIC"})
	})

	p, err := client.GetProperty(context.Background(), "f1", "team", domain.VisibilityPublic)
	require.NoError(t, err)
	assert.Equal(t, "ops", p.Value)
}

func TestGetProperty_Missing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PRIVATE", r.URL.Query().Get("visibility"))
		writeError(w, http.StatusNotFound, "notFound")
	})

	_, err := client.GetProperty(context.Background(), "f1", "nope", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetProperty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/drive/v2/files/f1/properties", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "team", body["key"])
		assert.Equal(t, "PRIVATE", body["visibility"])
		writeJSON(w, body)
	})

	p, err := client.SetProperty(context.Background(), "f1", domain.Property{Key: "team", Value: "ops"})
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityPrivate, p.Visibility)

	_, err = client.SetProperty(context.Background(), "f1", domain.Property{Value: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDeleteProperty(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodDelete, r.Method)
		if calls == 1 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeError(w, http.StatusNotFound, "notFound")
	})

	assert.NoError(t, client.DeleteProperty(context.Background(), "f1", "team", domain.VisibilityPublic))
	assert.NoError(t, client.DeleteProperty(context.Background(), "f1", "team", domain.VisibilityPublic))
	assert.Equal(t, 2, calls)
}

func TestFindByProperty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "properties has { key='team' and value='ops' } and trashed = false", r.URL.Query().Get("q"))
		writeJSON(w, map[string]any{"files": []any{fileJSON("f1", "a", "text/plain")}})
	})

	files, err := client.FindByProperty(context.Background(), "team", "ops")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
