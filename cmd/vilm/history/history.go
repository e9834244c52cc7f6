// Package historycmder provides the history command for inspecting the
// conversations the plugin host has persisted.
package historycmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vilm/cmd/vilm/storageopener"
	"github.com/papercomputeco/vilm/pkg/config"
	"github.com/papercomputeco/vilm/pkg/logger"
	"github.com/papercomputeco/vilm/pkg/storage"
)

const historyLongDesc string = `Inspect persisted conversations.

Every completed exchange in the editor is stored as a chain of
content-addressed messages when storage.driver is sqlite or postgres.
A conversation is identified by the hash of its latest message; any
unique prefix of a hash works too. The same hashes are accepted by
:VILMResume inside Neovim.

  vilm history list           List conversations, newest first
  vilm history show <hash>    Render a conversation as markdown
  vilm history purge --yes    Delete every conversation`

const historyShortDesc string = "Inspect persisted conversations"

var storageFlags = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
}

// historyCommander holds the storage settings shared by the subcommands.
type historyCommander struct {
	configDir     string
	storageDriver string
	sqlitePath    string
	postgresDSN   string
	cfg           *config.Config
	logger        *slog.Logger
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.loadConfig(cmd)
		},
	}

	fs := cmd.PersistentFlags()
	fs.StringVar(&cmder.storageDriver, config.Flags[config.FlagStorageDriver].Name, "", config.Flags[config.FlagStorageDriver].Description)
	fs.StringVarP(&cmder.sqlitePath, config.Flags[config.FlagSQLite].Name, config.Flags[config.FlagSQLite].Shorthand, "", config.Flags[config.FlagSQLite].Description)
	fs.StringVar(&cmder.postgresDSN, config.Flags[config.FlagPostgresDSN].Name, "", config.Flags[config.FlagPostgresDSN].Description)

	cmd.AddCommand(newListCmd(cmder))
	cmd.AddCommand(newShowCmd(cmder))
	cmd.AddCommand(newPurgeCmd(cmder))

	return cmd
}

func (c *historyCommander) loadConfig(cmd *cobra.Command) error {
	c.configDir, _ = cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, storageFlags)
	c.cfg = config.FromViper(v)

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		c.logger = logger.New(logger.WithFormat(logger.FormatPretty), logger.WithWriter(cmd.ErrOrStderr()), logger.WithDebug(true))
	} else {
		c.logger = logger.Nop()
	}
	return nil
}

// withDriver opens the configured store for the duration of fn.
func (c *historyCommander) withDriver(ctx context.Context, fn func(storage.Driver) error) error {
	if c.cfg.Storage.Driver == config.StorageMemory {
		return fmt.Errorf("storage.driver is %q, nothing is persisted; set it to sqlite or postgres", config.StorageMemory)
	}

	driver, err := storageopener.Open(ctx, c.cfg.Storage, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	return fn(driver)
}

func writeLines(w io.Writer, lines ...string) error {
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
