package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/gapps-cli/internal/adapters/driving/oauth"
	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/core/ports/driving"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage accounts and OAuth clients",
	Long: `Add, list and remove Google accounts.

Two kinds of account are supported:
  - user accounts, authorised in the browser through an OAuth client
  - service accounts, authorised with a JSON key

Examples:
  # Register the OAuth client downloaded from the Cloud console, then log in
  gapps auth add-client client_secret.json
  gapps auth login

  # Add a service account, optionally impersonating a Workspace user
  gapps auth add-service-account key.json --subject admin@example.com`,
}

var authAddClientCmd = &cobra.Command{
	Use:   "add-client [client_secret.json]",
	Short: "Register an OAuth client application",
	Long: `Register an OAuth client used by "gapps auth login".

Pass the client secrets file downloaded from the Google Cloud console, or
--client-id. The client secret is prompted for when not given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthAddClient,
}

var authClientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "List registered OAuth clients",
	Args:  cobra.NoArgs,
	RunE:  runAuthClients,
}

var authRemoveClientCmd = &cobra.Command{
	Use:   "remove-client [client-id]",
	Short: "Remove an OAuth client no account uses",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthRemoveClient,
}

var authAddServiceAccountCmd = &cobra.Command{
	Use:   "add-service-account [key.json]",
	Short: "Add a service account from its JSON key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthAddServiceAccount,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [client-id]",
	Short: "Log in with a user account in the browser",
	Long: `Log in through the browser and store the account.

The client may be omitted when exactly one OAuth client is registered.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthLogin,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE:  runAuthList,
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove [account]",
	Short: "Remove an account and its tokens",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthRemove,
}

var authDefaultCmd = &cobra.Command{
	Use:   "default [account]",
	Short: "Show or set the default account",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthDefault,
}

// Flags.
var (
	authClientName   string
	authClientID     string
	authClientSecret string
	authScopes       string
	authSubject      string
	authReadonly     bool
	authNoBrowser    bool
)

func init() {
	authAddClientCmd.Flags().StringVar(&authClientName, "name", "", "Name for the client")
	authAddClientCmd.Flags().StringVar(&authClientID, "client-id", "", "OAuth client ID")
	authAddClientCmd.Flags().StringVar(&authClientSecret, "client-secret", "", "OAuth client secret")
	authAddClientCmd.Flags().StringVar(&authScopes, "scopes", "", "Comma separated scopes (default drive and sheets)")
	authAddClientCmd.Flags().BoolVar(&authReadonly, "readonly", false, "Request read-only scopes")

	authAddServiceAccountCmd.Flags().StringVar(&authSubject, "subject", "", "User to impersonate (domain-wide delegation)")
	authAddServiceAccountCmd.Flags().StringVar(&authScopes, "scopes", "", "Comma separated scopes (default drive and sheets)")

	authLoginCmd.Flags().BoolVar(&authNoBrowser, "no-browser", false, "Print the consent URL instead of opening a browser")

	authCmd.AddCommand(authAddClientCmd)
	authCmd.AddCommand(authClientsCmd)
	authCmd.AddCommand(authRemoveClientCmd)
	authCmd.AddCommand(authAddServiceAccountCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authRemoveCmd)
	authCmd.AddCommand(authDefaultCmd)
	rootCmd.AddCommand(authCmd)
}

// requestedScopes returns the scopes chosen by --scopes and --readonly.
func requestedScopes() []string {
	if scopes := splitList(authScopes); len(scopes) > 0 {
		return scopes
	}
	if authReadonly {
		return google.ReadonlyScopes()
	}
	return nil
}

func runAuthAddClient(cmd *cobra.Command, args []string) error {
	svc, err := accounts()
	if err != nil {
		return err
	}

	var cfg *domain.OAuthProviderConfig
	switch {
	case len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read client file: %w", err)
		}
		cfg, err = google.OAuthConfigFromClientJSON(data, requestedScopes())
		if err != nil {
			return fmt.Errorf("parse client file: %w", err)
		}
	case authClientID != "":
		cfg = &domain.OAuthProviderConfig{
			ClientID:     authClientID,
			ClientSecret: authClientSecret,
			Scopes:       requestedScopes(),
		}
		if cfg.ClientSecret == "" {
			if cfg.ClientSecret, err = promptSecret(cmd, "Client secret: "); err != nil {
				return err
			}
		}
	default:
		return errors.New("pass a client secrets file or --client-id")
	}

	provider, err := svc.AddOAuthClient(context.Background(), authClientName, *cfg)
	if err != nil {
		return fmt.Errorf("failed to add OAuth client: %w", err)
	}

	cmd.Printf("OAuth client added: %s\n", provider.ID)
	cmd.Println("Log in with: gapps auth login")
	return nil
}

func runAuthClients(cmd *cobra.Command, _ []string) error {
	svc, err := accounts()
	if err != nil {
		return err
	}
	clients, err := svc.ListOAuthClients(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list OAuth clients: %w", err)
	}

	rows := make([][]string, 0, len(clients))
	for i := range clients {
		c := &clients[i]
		clientID, scopes := "", ""
		if c.OAuth != nil {
			clientID = truncate(c.OAuth.ClientID, 24)
			scopes = strings.Join(c.OAuth.Scopes, " ")
		}
		rows = append(rows, []string{c.ID, c.Name, clientID, scopes})
	}
	return render(cmd, []string{"ID", "NAME", "CLIENT ID", "SCOPES"}, rows, clients)
}

func runAuthRemoveClient(cmd *cobra.Command, args []string) error {
	svc, err := accounts()
	if err != nil {
		return err
	}
	if err := svc.RemoveOAuthClient(context.Background(), args[0]); err != nil {
		if errors.Is(err, domain.ErrAuthProviderInUse) {
			return fmt.Errorf("cannot remove: %w; remove its accounts first", err)
		}
		return fmt.Errorf("failed to remove OAuth client: %w", err)
	}
	cmd.Printf("Removed OAuth client: %s\n", args[0])
	return nil
}

func runAuthAddServiceAccount(cmd *cobra.Command, args []string) error {
	svc, err := accounts()
	if err != nil {
		return err
	}
	key, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read key file: %w", err)
	}

	account, err := svc.AddServiceAccount(context.Background(), key, authSubject, splitList(authScopes))
	if err != nil {
		return fmt.Errorf("failed to add service account: %w", err)
	}
	cmd.Printf("Service account added: %s (%s)\n", account.Name, account.ID)
	return nil
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	svc, err := accounts()
	if err != nil {
		return err
	}
	ctx := context.Background()

	clientID, err := loginClient(ctx, svc, args)
	if err != nil {
		return err
	}

	account, err := svc.Login(ctx, clientID, driving.LoginCallbacks{
		OnAuthURL: func(authURL string) error {
			if !authNoBrowser {
				if err := oauth.OpenBrowser(authURL); err == nil {
					cmd.Println("Opened the browser to complete login.")
					cmd.Printf("If it did not open, visit:\n\n  %s\n\n", authURL)
					return nil
				}
			}
			cmd.Printf("Open this URL in a browser to log in:\n\n  %s\n\n", authURL)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cmd.Printf("Logged in as %s\n", account.Name)
	return nil
}

// loginClient picks the OAuth client to log in with.
func loginClient(ctx context.Context, svc driving.AccountService, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	clients, err := svc.ListOAuthClients(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list OAuth clients: %w", err)
	}
	switch len(clients) {
	case 0:
		return "", errors.New("no OAuth client registered; add one with: gapps auth add-client")
	case 1:
		return clients[0].ID, nil
	default:
		return "", errors.New("several OAuth clients registered; pass one (see: gapps auth clients)")
	}
}

// accountView is the JSON shape of an account. Keys and tokens are omitted.
type accountView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Method    string    `json:"method"`
	Subject   string    `json:"subject,omitempty"`
	Scopes    []string  `json:"scopes"`
	Default   bool      `json:"default"`
	CreatedAt time.Time `json:"created_at"`
}

func runAuthList(cmd *cobra.Command, _ []string) error {
	svc, err := accounts()
	if err != nil {
		return err
	}
	list, err := svc.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	def := svc.Default()
	views := make([]accountView, 0, len(list))
	rows := make([][]string, 0, len(list))
	for i := range list {
		a := &list[i]
		views = append(views, accountView{
			ID:        a.ID,
			Name:      a.Name,
			Method:    string(a.Method),
			Subject:   a.Subject,
			Scopes:    a.Scopes,
			Default:   a.ID == def,
			CreatedAt: a.CreatedAt,
		})
		marker := ""
		if a.ID == def {
			marker = "*"
		}
		rows = append(rows, []string{marker, a.ID, a.Name, string(a.Method)})
	}
	return render(cmd, []string{"", "ID", "NAME", "METHOD"}, rows, views)
}

func runAuthRemove(cmd *cobra.Command, args []string) error {
	svc, err := accounts()
	if err != nil {
		return err
	}
	if err := svc.Remove(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}
	cmd.Printf("Removed account: %s\n", args[0])
	return nil
}

func runAuthDefault(cmd *cobra.Command, args []string) error {
	svc, err := accounts()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if len(args) == 1 {
		if err := svc.SetDefault(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to set default account: %w", err)
		}
	}

	account, err := svc.Resolve(ctx, "")
	if errors.Is(err, domain.ErrAuthRequired) {
		cmd.Println("No default account.")
		return nil
	}
	if err != nil {
		return err
	}
	cmd.Printf("Default account: %s (%s)\n", account.Name, account.ID)
	return nil
}

// truncate shortens s to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
