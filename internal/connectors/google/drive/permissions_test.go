package drive

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

func permissionList(perms ...map[string]any) map[string]any {
	return map[string]any{"permissions": perms}
}

func userPerm(id, email, role string) map[string]any {
	return map[string]any{"id": id, "type": "user", "emailAddress": email, "role": role}
}

func TestListPermissions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drive/v3/files/f1/permissions", r.URL.Path)
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, map[string]any{
				"permissions":   []any{userPerm("p1", "owner@example.com", "owner")},
				"nextPageToken": "t2",
			})
			return
		}
		writeJSON(w, permissionList(
			map[string]any{"id": "p2", "type": "domain", "domain": "example.com", "role": "reader"},
			map[string]any{"id": "p3", "type": "anyone", "role": "reader", "allowFileDiscovery": true},
		))
	})

	perms, err := client.ListPermissions(context.Background(), "f1")
	require.NoError(t, err)

	require.Len(t, perms, 3)
	assert.Equal(t, domain.RoleOwner, perms[0].Role)
	assert.Equal(t, "domain:example.com", perms[1].Principal().String())
	assert.True(t, perms[2].AllowFileDiscovery)
}

func TestListPermissionsBatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/f2/") {
			writeError(w, http.StatusForbidden, "insufficientFilePermissions")
			return
		}
		writeJSON(w, permissionList(userPerm("p1", "a@example.com", "writer")))
	})

	perms, err := client.ListPermissionsBatch(context.Background(), "f1", "f2", "f3")
	require.Error(t, err)

	assert.Len(t, perms["f1"], 1)
	assert.Len(t, perms["f3"], 1)
	assert.NotContains(t, perms, "f2")
}

func TestAssign_NoopWhenCovered(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		writeJSON(w, permissionList(userPerm("p1", "Alice@Example.com", "writer")))
	})

	perm, changed, err := client.Assign(context.Background(), "f1", domain.Authorization{
		Principal: domain.Principal{Type: domain.PrincipalUser, Address: "alice@example.com"},
		Role:      domain.RoleReader,
	})
	require.NoError(t, err)

	assert.False(t, changed)
	assert.Equal(t, "p1", perm.ID)
	assert.Equal(t, domain.RoleWriter, perm.Role)
}

func TestAssign_UpgradesWeakerRole(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, permissionList(userPerm("p1", "alice@example.com", "reader")))
		case http.MethodPatch:
			assert.Equal(t, "/drive/v3/files/f1/permissions/p1", r.URL.Path)
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "writer", body["role"])
			writeJSON(w, userPerm("p1", "alice@example.com", "writer"))
		default:
			t.Errorf("unexpected %s", r.Method)
		}
	})

	perm, changed, err := client.Assign(context.Background(), "f1", domain.Authorization{
		Principal: domain.Principal{Type: domain.PrincipalUser, Address: "alice@example.com"},
		Role:      domain.RoleWriter,
	})
	require.NoError(t, err)

	assert.True(t, changed)
	assert.Equal(t, domain.RoleWriter, perm.Role)
}

func TestAssign_CreatesPermission(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, permissionList(userPerm("p1", "owner@example.com", "owner")))
		case http.MethodPost:
			assert.Equal(t, "false", r.URL.Query().Get("sendNotificationEmail"))
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "group", body["type"])
			assert.Equal(t, "team@example.com", body["emailAddress"])
			assert.Equal(t, "commenter", body["role"])
			writeJSON(w, map[string]any{"id": "p9", "type": "group", "emailAddress": "team@example.com", "role": "commenter"})
		}
	})

	perm, changed, err := client.Assign(context.Background(), "f1", domain.Authorization{
		Principal: domain.Principal{Type: domain.PrincipalGroup, Address: "team@example.com"},
		Role:      domain.RoleCommenter,
	})
	require.NoError(t, err)

	assert.True(t, changed)
	assert.Equal(t, "p9", perm.ID)
}

func TestAssign_Invalid(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, _, err := client.Assign(context.Background(), "f1", domain.Authorization{
		Principal: domain.Principal{Type: domain.PrincipalUser},
		Role:      domain.RoleReader,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRevoke(t *testing.T) {
	var deleted []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, permissionList(
				userPerm("p1", "alice@example.com", "reader"),
				userPerm("p2", "bob@example.com", "writer"),
				userPerm("p3", "ALICE@example.com", "commenter"),
			))
		case http.MethodDelete:
			deleted = append(deleted, r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:])
			w.WriteHeader(http.StatusNoContent)
		}
	})

	n, err := client.Revoke(context.Background(), "f1", domain.Principal{Type: domain.PrincipalUser, Address: "alice@example.com"})
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"p1", "p3"}, deleted)
}

func TestRevoke_NoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		writeJSON(w, permissionList(userPerm("p1", "bob@example.com", "reader")))
	})

	n, err := client.Revoke(context.Background(), "f1", domain.Principal{Type: domain.PrincipalAnyone})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSummarizePermissions(t *testing.T) {
	perms := []domain.Permission{
		{Type: domain.PrincipalUser, EmailAddress: "zed@example.com", Role: domain.RoleReader},
		{Type: domain.PrincipalUser, EmailAddress: "amy@example.com", Role: domain.RoleReader},
		{Type: domain.PrincipalAnyone, Role: domain.RoleReader},
		{Type: domain.PrincipalDomain, Domain: "example.com", Role: domain.RoleWriter},
	}

	summary := SummarizePermissions(perms)

	assert.Equal(t, []string{"anyone", "user:amy@example.com", "user:zed@example.com"}, summary[domain.RoleReader])
	assert.Equal(t, []string{"domain:example.com"}, summary[domain.RoleWriter])
	assert.NotContains(t, summary, domain.RoleOwner)
}
