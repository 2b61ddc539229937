package drive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
)

// newTestClient serves the v3 API under /drive/v3/ and the v2 API under
// /drive/v2/ from one handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	files, err := google.NewDriveService(ctx, nil,
		option.WithEndpoint(srv.URL+"/drive/v3/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	legacy, err := google.NewDriveV2Service(ctx, nil,
		option.WithEndpoint(srv.URL+"/drive/v2/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.PageSize = 2
	limiter := google.NewRateLimiterWithConfig(google.RateLimitConfig{})
	return NewClient(files, legacy, cfg, limiter)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": reason,
			"errors":  []map[string]string{{"reason": reason, "message": reason}},
		},
	})
}

func fileJSON(id, name, mimeType string, parents ...string) map[string]any {
	return map[string]any{
		"id":       id,
		"name":     name,
		"mimeType": mimeType,
		"parents":  parents,
	}
}

type mapStore map[string]any

func (m mapStore) Get(key string) (any, bool) { v, ok := m[key]; return v, ok }
func (m mapStore) GetString(key string) string {
	s, _ := m[key].(string)
	return s
}
func (m mapStore) GetInt(key string) int {
	n, _ := m[key].(int)
	return n
}
func (m mapStore) GetFloat(key string) float64 {
	f, _ := m[key].(float64)
	return f
}
func (m mapStore) GetBool(key string) bool {
	b, _ := m[key].(bool)
	return b
}
func (m mapStore) GetStringSlice(string) []string { return nil }
func (m mapStore) Set(key string, value any) error {
	m[key] = value
	return nil
}
func (m mapStore) Unset(key string) error {
	delete(m, key)
	return nil
}
func (m mapStore) Keys() []string { return nil }
func (m mapStore) Save() error    { return nil }
func (m mapStore) Load() error    { return nil }
func (m mapStore) Path() string   { return "" }
