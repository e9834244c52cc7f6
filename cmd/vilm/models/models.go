// Package modelscmder provides the models command, which lists the models
// the Ollama service has available.
package modelscmder

import (
	"context"
	"fmt"
	"io"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/vilm/pkg/cliui"
	"github.com/papercomputeco/vilm/pkg/config"
	"github.com/papercomputeco/vilm/pkg/llm"
	"github.com/papercomputeco/vilm/pkg/llm/ollama"
)

const modelsLongDesc string = `List the models available from Ollama.

These are the names :VILMModel accepts and completes. The endpoint comes
from --endpoint, then OLLAMA_HOST, then ollama.endpoint in config.toml.

Examples:
  vilm models
  vilm models --endpoint http://gpu-box:11434`

const modelsShortDesc string = "List the models available from Ollama"

type modelsCommander struct {
	endpoint string
	timeout  string
	cfg      *config.Config
	out      io.Writer

	// explicit is set when --endpoint was given, which beats OLLAMA_HOST.
	explicit bool
}

var modelsFlags = []string{
	config.FlagEndpoint,
	config.FlagTimeout,
}

func NewModelsCmd() *cobra.Command {
	cmder := &modelsCommander{}

	cmd := &cobra.Command{
		Use:   "models",
		Short: modelsShortDesc,
		Long:  modelsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, modelsFlags)
			cmder.cfg = config.FromViper(v)
			cmder.explicit = cmd.Flags().Changed(config.Flags[config.FlagEndpoint].Name)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagEndpoint, &cmder.endpoint)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, &cmder.timeout)

	return cmd
}

func (c *modelsCommander) run(ctx context.Context) error {
	endpoint := ollama.ResolveEndpoint(c.cfg.Ollama.Endpoint, c.explicit)

	client, err := ollama.New(endpoint, ollama.WithTimeout(c.cfg.TimeoutDuration()))
	if err != nil {
		return fmt.Errorf("creating ollama client: %w", err)
	}

	return listModels(ctx, c.out, client, client.Endpoint())
}

// listModels prints one model per line. The spinner only shows on a
// terminal.
func listModels(ctx context.Context, w io.Writer, client llm.Client, endpoint string) error {
	cliui.Init(w)

	var models []string
	fetch := func() error {
		var err error
		models, err = client.ListModels(ctx)
		return err
	}

	var err error
	if cliui.Profile(w) == termenv.Ascii {
		err = fetch()
	} else {
		err = cliui.Step(w, "Fetching models from "+endpoint, fetch)
	}
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if len(models) == 0 {
		_, err := fmt.Fprintln(w, cliui.DimStyle.Render("No models found."))
		return err
	}

	for _, m := range models {
		if _, err := fmt.Fprintln(w, cliui.ValueStyle.Render(m)); err != nil {
			return err
		}
	}
	return nil
}
