// Package vilmcmder
package vilmcmder

import (
	"github.com/spf13/cobra"

	versioncmder "github.com/papercomputeco/vilm/cmd/version"
	configcmder "github.com/papercomputeco/vilm/cmd/vilm/config"
	historycmder "github.com/papercomputeco/vilm/cmd/vilm/history"
	hostcmder "github.com/papercomputeco/vilm/cmd/vilm/host"
	modelscmder "github.com/papercomputeco/vilm/cmd/vilm/models"
)

const vilmLongDesc string = `vilm chats with a local Ollama model from inside Neovim.

Neovim runs the plugin host:
  vilm host                  Run the remote plugin host (started by Neovim)
  vilm host --manifest vilm  Print the command manifest for rplugin

Outside the editor:
  vilm models                List the models Ollama has pulled
  vilm history list          List saved conversations
  vilm history show <hash>   Render a saved conversation
  vilm config list           Show the configuration`

const vilmShortDesc string = "vilm - Ollama chat for Neovim"

func NewVilmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "vilm",
		Short:        vilmShortDesc,
		Long:         vilmLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .vilm/ config directory")

	// Add subcommands
	cmd.AddCommand(hostcmder.NewHostCmd())
	cmd.AddCommand(modelscmder.NewModelsCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
