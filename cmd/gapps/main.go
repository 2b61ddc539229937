// Command gapps manages Google Drive files and Google Sheets spreadsheets.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/gapps-cli/internal/adapters/driven/auth"
	"github.com/custodia-labs/gapps-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/gapps-cli/internal/adapters/driven/oauth"
	"github.com/custodia-labs/gapps-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/gapps-cli/internal/adapters/driving/cli"
	callback "github.com/custodia-labs/gapps-cli/internal/adapters/driving/oauth"
	"github.com/custodia-labs/gapps-cli/internal/core/services"
)

func main() {
	cli.SetBootstrap(bootstrap)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap opens the config file and account database under configDir.
func bootstrap(configDir string) (*cli.Services, error) {
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("locate config directory: %w", err)
		}
		configDir = dir
	}

	config, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	store, err := sqlite.NewStore(filepath.Join(configDir, "data"))
	if err != nil {
		return nil, fmt.Errorf("open account database: %w", err)
	}

	providers := store.AuthProviderStore()
	credentials := store.CredentialsStore()
	accounts := services.NewAccountService(
		providers,
		store.AccountStore(),
		credentials,
		config,
		oauth.NewExchanger(),
		callback.Factory,
	)
	sessions := services.NewSessionService(accounts, auth.NewFactory(credentials, providers), config)

	return &cli.Services{
		Accounts: accounts,
		Sessions: sessions,
		Config:   config,
		Close:    store.Close,
	}, nil
}
