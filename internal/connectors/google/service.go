package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	drivev2 "google.golang.org/api/drive/v2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// UserInfoURL is the endpoint used to identify the logged-in user.
var UserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// UserInfo contains the user's basic profile information from Google.
type UserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func withTokenSource(ts oauth2.TokenSource, opts []option.ClientOption) []option.ClientOption {
	all := make([]option.ClientOption, 0, len(opts)+1)
	if ts != nil {
		all = append(all, option.WithTokenSource(ts))
	}
	return append(all, opts...)
}

// NewDriveService creates a Google Drive v3 API service using the provided TokenSource.
// Extra options are appended, so tests can override the endpoint or HTTP client.
func NewDriveService(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*drive.Service, error) {
	return drive.NewService(ctx, withTokenSource(ts, opts)...)
}

// NewDriveV2Service creates a Google Drive v2 API service.
// v2 is only used for the file properties resource, which v3 dropped.
func NewDriveV2Service(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*drivev2.Service, error) {
	return drivev2.NewService(ctx, withTokenSource(ts, opts)...)
}

// NewSheetsService creates a Google Sheets v4 API service using the provided TokenSource.
func NewSheetsService(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*sheets.Service, error) {
	return sheets.NewService(ctx, withTokenSource(ts, opts)...)
}

// GetUserInfo fetches the user's profile information using an access token.
// Returns the user's email address which serves as the account name.
func GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, UserInfoURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request failed with status %d", resp.StatusCode)
	}

	var userInfo UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}

	return &userInfo, nil
}
