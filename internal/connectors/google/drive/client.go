// Package drive wraps the Google Drive v3 API, plus the v2 properties
// resource, with query building, batched folder listing and permission
// management.
package drive

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	drivev2 "google.golang.org/api/drive/v2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/connectors/google/batch"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/logger"
)

// Client performs Drive operations for one account.
type Client struct {
	files   *drive.Service
	legacy  *drivev2.Service
	limiter *google.RateLimiter
	cfg     *Config
}

// NewClient creates a client from existing services. A nil limiter uses the
// Drive defaults and a nil config uses DefaultConfig.
func NewClient(files *drive.Service, legacy *drivev2.Service, cfg *Config, limiter *google.RateLimiter) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if limiter == nil {
		limiter = google.NewRateLimiter(google.ServiceDrive)
	}
	return &Client{
		files:   files,
		legacy:  legacy,
		limiter: limiter,
		cfg:     cfg,
	}
}

// New builds the v2 and v3 services for a token source and returns a client.
func New(
	ctx context.Context, ts oauth2.TokenSource, cfg *Config, limiter *google.RateLimiter, opts ...option.ClientOption,
) (*Client, error) {
	files, err := google.NewDriveService(ctx, ts, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	legacy, err := google.NewDriveV2Service(ctx, ts, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive v2 service: %w", err)
	}
	return NewClient(files, legacy, cfg, limiter), nil
}

// Config returns the client configuration.
func (c *Client) Config() *Config {
	return c.cfg
}

// call runs one API call behind the rate limiter and maps API errors.
func (c *Client) call(ctx context.Context, op string, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	logger.Debug("Drive %s", op)
	return google.WrapError(c.limiter.Observe(fn()))
}

func (c *Client) batchOptions() batch.Options {
	return batch.Options{
		Concurrency: c.cfg.BatchConcurrency,
		Limiter:     c.limiter,
	}
}

func (c *Client) fileFields() googleapi.Field {
	return googleapi.Field(c.cfg.FileFields)
}

// toFile flattens an API file into the domain model.
func toFile(f *drive.File) domain.File {
	if f == nil {
		return domain.File{}
	}
	return domain.File{
		ID:           f.Id,
		Title:        f.Name,
		MimeType:     f.MimeType,
		Parents:      f.Parents,
		Size:         f.Size,
		CreatedTime:  parseTime(f.CreatedTime),
		ModifiedTime: parseTime(f.ModifiedTime),
		WebLink:      f.WebViewLink,
		Trashed:      f.Trashed,
		Properties:   f.Properties,
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
