package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/gapps-cli/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and change settings",
	Long: `Read and change settings stored in config.toml.

Keys are dotted, for example:
  output                     default output format (table, json, tsv)
  drive.page_size            page size for Drive listings
  drive.batch_concurrency    requests in flight during batched calls
  drive.supports_all_drives  include shared drives
  sheets.write_batch_cells   cells per Sheets write request
  ratelimit.drive_rps        Drive requests per second (0 disables)
  ratelimit.sheets_rps       Sheets requests per second (0 disables)
  oauth.callback_port_start  first port tried for the login callback
  oauth.login_timeout        seconds to wait for the browser login`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Remove a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	store, err := config()
	if err != nil {
		return err
	}
	value, ok := store.Get(args[0])
	if !ok {
		return fmt.Errorf("%s is not set", args[0])
	}
	cmd.Println(stringify(value))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	store, err := config()
	if err != nil {
		return err
	}
	if err := store.Set(args[0], file.ParseValue(args[1])); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("%s = %s\n", args[0], args[1])
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	store, err := config()
	if err != nil {
		return err
	}
	if err := store.Unset(args[0]); err != nil {
		return fmt.Errorf("failed to unset %s: %w", args[0], err)
	}
	cmd.Printf("Unset %s\n", args[0])
	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	store, err := config()
	if err != nil {
		return err
	}
	keys := store.Keys()

	values := make(map[string]any, len(keys))
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		value, _ := store.Get(key)
		values[key] = value
		rows = append(rows, []string{key, stringify(value)})
	}
	return render(cmd, []string{"KEY", "VALUE"}, rows, values)
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	store, err := config()
	if err != nil {
		return err
	}
	cmd.Println(store.Path())
	return nil
}
