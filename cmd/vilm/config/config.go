// Package configcmder provides the config command for managing persistent
// vilm configuration stored in the .vilm/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent vilm configuration.

Configuration is stored as config.toml in the .vilm/ directory and provides
default values for the plugin host and command flags. CLI flags and VILM_*
environment variables take precedence over config file values. A running
plugin host picks up changes to the chat layout and the Ollama endpoint
without a restart.

Keys use dotted notation matching the TOML section structure:
  ollama.endpoint, ollama.timeout,
  chat.default_model, chat.width, chat.height, chat.input_height,
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  log.debug

Use subcommands to get, set, or list configuration values:
  vilm config set <key> <value>    Set a configuration value
  vilm config get <key>            Get a configuration value
  vilm config list                 List all configuration values

Examples:
  vilm config set chat.default_model mistral:7b
  vilm config set storage.driver sqlite
  vilm config get ollama.endpoint
  vilm config list`

const configShortDesc string = "Manage persistent vilm configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
