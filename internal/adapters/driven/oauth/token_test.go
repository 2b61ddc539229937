package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

func testConfig(tokenURL string) *domain.OAuthProviderConfig {
	return &domain.OAuthProviderConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		Scopes:       []string{google.ScopeDrive},
		AuthURL:      "https://auth.example.com/authorize",
		TokenURL:     tokenURL,
	}
}

func TestExchanger_AuthCodeURL(t *testing.T) {
	verifier := oauth2.GenerateVerifier()
	raw := NewExchanger().AuthCodeURL(testConfig(""), "http://localhost:9000/callback", "st", verifier)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "auth.example.com", u.Host)

	q := u.Query()
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "st", q.Get("state"))
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), q.Get("code_challenge"))
	assert.NotEqual(t, verifier, q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "http://localhost:9000/callback", q.Get("redirect_uri"))
	assert.Equal(t, google.ScopeDrive, q.Get("scope"))
}

func TestExchanger_Exchange(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access",
			"refresh_token": "refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	creds, err := NewExchanger().Exchange(
		context.Background(), testConfig(srv.URL), "http://localhost:9000/callback", "code-1", "verifier-1")
	require.NoError(t, err)

	assert.Equal(t, "access", creds.AccessToken)
	assert.Equal(t, "refresh", creds.RefreshToken)
	assert.Equal(t, "Bearer", creds.TokenType)
	assert.False(t, creds.Expiry.IsZero())

	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "code-1", form.Get("code"))
	assert.Equal(t, "verifier-1", form.Get("code_verifier"))
	assert.Equal(t, "client", form.Get("client_id"))
	assert.Equal(t, "secret", form.Get("client_secret"))
}

func TestExchanger_ExchangeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Bad code"}`))
	}))
	defer srv.Close()

	_, err := NewExchanger().Exchange(context.Background(), testConfig(srv.URL), "", "bad", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestExchanger_UserEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"email":"user@example.com","verified_email":true}`))
	}))
	defer srv.Close()

	original := google.UserInfoURL
	google.UserInfoURL = srv.URL
	defer func() { google.UserInfoURL = original }()

	email, err := NewExchanger().UserEmail(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email)

	_, err = NewExchanger().UserEmail(context.Background(), "bad")
	assert.Error(t, err)
}
