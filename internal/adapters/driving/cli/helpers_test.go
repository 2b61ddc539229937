package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"google.golang.org/api/option"

	"github.com/custodia-labs/gapps-cli/internal/adapters/driven/auth"
	"github.com/custodia-labs/gapps-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/gapps-cli/internal/core/services"
)

const (
	testFileID   = "file0000001"
	testFolderID = "folder00001"
	testSheetID  = "sheet000000000000000001"
	testKey      = `{"type":"service_account","client_email":"bot@proj.iam.gserviceaccount.com","private_key":"x"}`
)

// testEnv holds the services installed by setupTestServices.
type testEnv struct {
	stores   *memory.Stores
	config   *memory.ConfigStore
	accounts *services.AccountService
}

// setupTestServices installs in-memory services whose Google API calls go to
// handler. A nil handler fails every API call. Sessions run on a static token.
func setupTestServices(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()

	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	env := &testEnv{
		stores: memory.NewStores(),
		config: memory.NewConfigStore(),
	}
	env.accounts = services.NewAccountService(
		env.stores.Providers, env.stores.Accounts, env.stores.Credentials, env.config, nil, nil)
	sessions := services.NewSessionService(env.accounts,
		auth.NewFactory(env.stores.Credentials, env.stores.Providers), env.config,
		option.WithEndpoint(srv.URL+"/"))

	SetServices(&Services{Accounts: env.accounts, Sessions: sessions, Config: env.config})
	t.Setenv(EnvAccessToken, "test-token")
	t.Cleanup(func() { SetServices(nil) })
	return env
}

// execute runs the root command with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so runs do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeJSONResponse(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func fileJSON(id, name, mimeType string) map[string]any {
	return map[string]any{"id": id, "name": name, "mimeType": mimeType}
}
