// Package cli provides the gapps command line interface.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/gapps-cli/internal/adapters/driven/auth"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driving"
	"github.com/custodia-labs/gapps-cli/internal/core/services"
	"github.com/custodia-labs/gapps-cli/internal/logger"
)

// EnvAccessToken names the environment variable holding a bare access token.
// When set, commands skip the account store and use it directly.
const EnvAccessToken = "GAPPS_ACCESS_TOKEN"

// version is set at build time via ldflags.
var version = "dev"

// Global flags.
var (
	verbose      bool
	configDir    string
	accountRef   string
	outputFormat string
)

// SessionOpener opens authenticated API sessions.
type SessionOpener interface {
	Open(ctx context.Context, ref string) (*services.Session, error)
	OpenWithProvider(ctx context.Context, provider driven.TokenProvider) (*services.Session, error)
}

// Services bundles everything commands depend on.
type Services struct {
	Accounts driving.AccountService
	Sessions SessionOpener
	Config   driven.ConfigStore
	// Close releases resources such as the account database. May be nil.
	Close func() error
}

// Bootstrap builds Services once flags are parsed.
type Bootstrap func(configDir string) (*Services, error)

var (
	bootstrap Bootstrap
	svc       *Services
)

// skipServices marks commands that run without services.
const skipServices = "skip-services"

var rootCmd = &cobra.Command{
	Use:   "gapps",
	Short: "Work with Google Drive and Sheets from the terminal",
	Long: `gapps manages Google Drive files and Google Sheets spreadsheets.

Accounts are added once and reused:
  gapps auth add-client client_secret.json
  gapps auth login
  gapps auth add-service-account key.json

Then:
  gapps drive ls
  gapps sheets read <spreadsheet> 'Sheet1!A1:D10'

Set GAPPS_ACCESS_TOKEN to run with a bare OAuth access token instead.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Print debug logging to stderr")
	flags.StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.gapps)")
	flags.StringVarP(&accountRef, "account", "a", "", "Account ID or name (default account when empty)")
	flags.StringVarP(&outputFormat, "output", "o", "", "Output format: table, json or tsv")
}

// SetBootstrap registers the function that builds services.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices installs ready-made services. Used by tests and embedders.
func SetServices(s *Services) {
	svc = s
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if svc != nil && svc.Close != nil {
			if err := svc.Close(); err != nil {
				logger.Warn("Closing services: %v", err)
			}
		}
	}()
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if err := validateOutputFormat(); err != nil {
		return err
	}
	if cmd.Annotations[skipServices] != "" || svc != nil || bootstrap == nil {
		return nil
	}

	s, err := bootstrap(configDir)
	if err != nil {
		return err
	}
	svc = s
	return nil
}

func accounts() (driving.AccountService, error) {
	if svc == nil || svc.Accounts == nil {
		return nil, errors.New("account service not configured")
	}
	return svc.Accounts, nil
}

func config() (driven.ConfigStore, error) {
	if svc == nil || svc.Config == nil {
		return nil, errors.New("config store not configured")
	}
	return svc.Config, nil
}

// openSession opens a session for --account, or for the access token in
// GAPPS_ACCESS_TOKEN when set.
func openSession(ctx context.Context) (*services.Session, error) {
	if svc == nil || svc.Sessions == nil {
		return nil, errors.New("session service not configured")
	}
	if token := os.Getenv(EnvAccessToken); token != "" {
		logger.Debug("Using access token from %s", EnvAccessToken)
		return svc.Sessions.OpenWithProvider(ctx, auth.NewStaticTokenProvider(token))
	}
	return svc.Sessions.Open(ctx, accountRef)
}
