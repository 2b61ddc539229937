// Package sheets wraps the Google Sheets v4 API: spreadsheet and sheet
// management, value reads and writes, and conversion between Go values and
// cells.
package sheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
	"github.com/custodia-labs/gapps-cli/internal/logger"
)

// KeyWriteBatchCells is the config key for Config.WriteBatchCells.
const KeyWriteBatchCells = "sheets.write_batch_cells"

// DefaultWriteBatchCells bounds the cells sent in one batchUpdate.
const DefaultWriteBatchCells = 10000

// Config holds Sheets client configuration.
type Config struct {
	// WriteBatchCells is the most cells WriteRows sends per batchUpdate.
	WriteBatchCells int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{WriteBatchCells: DefaultWriteBatchCells}
}

// ParseConfig reads sheets settings from the config store.
func ParseConfig(store driven.ConfigStore) *Config {
	cfg := DefaultConfig()
	if store == nil {
		return cfg
	}
	if n := store.GetInt(KeyWriteBatchCells); n > 0 {
		cfg.WriteBatchCells = n
	}
	return cfg
}

// Client performs Sheets operations for one account.
type Client struct {
	svc     *sheets.Service
	limiter *google.RateLimiter
	cfg     *Config
}

// NewClient creates a client from an existing service. A nil limiter uses
// the Sheets defaults and a nil config uses DefaultConfig.
func NewClient(svc *sheets.Service, cfg *Config, limiter *google.RateLimiter) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if limiter == nil {
		limiter = google.NewRateLimiter(google.ServiceSheets)
	}
	return &Client{svc: svc, limiter: limiter, cfg: cfg}
}

// New builds the Sheets service for a token source and returns a client.
func New(
	ctx context.Context, ts oauth2.TokenSource, cfg *Config, limiter *google.RateLimiter, opts ...option.ClientOption,
) (*Client, error) {
	svc, err := google.NewSheetsService(ctx, ts, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewClient(svc, cfg, limiter), nil
}

func (c *Client) call(ctx context.Context, op string, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	logger.Debug("Sheets %s", op)
	return google.WrapError(c.limiter.Observe(fn()))
}
