// Package hostcmder provides the host command, which runs vilm as a Neovim
// remote plugin host over stdio.
package hostcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/vilm/cmd/vilm/storageopener"
	"github.com/papercomputeco/vilm/pkg/chat"
	"github.com/papercomputeco/vilm/pkg/cliui"
	"github.com/papercomputeco/vilm/pkg/config"
	"github.com/papercomputeco/vilm/pkg/dotdir"
	"github.com/papercomputeco/vilm/pkg/editor"
	"github.com/papercomputeco/vilm/pkg/logger"
	"github.com/papercomputeco/vilm/pkg/rplugin"
	"github.com/papercomputeco/vilm/pkg/transcript"
)

const hostLongDesc string = `Run the Neovim remote plugin host.

Neovim starts this command itself and talks to it with msgpack-RPC over
stdin and stdout, so it refuses to run attached to a terminal. Register it
from your init.lua or init.vim:

  call remote#host#Register('vilm', 'x', {-> jobstart(['vilm', 'host'], {'rpc': v:true})})

and generate the command manifest once with:

  vilm host --manifest vilm >> ~/.config/nvim/plugin/vilm.vim

Logs go to vilm.log in the .vilm/ directory. With --debug they are also
written to stderr.`

const hostShortDesc string = "Run the Neovim remote plugin host"

// ErrTerminal is returned when the host is started from a shell instead of
// by Neovim.
var ErrTerminal = errors.New("vilm host speaks msgpack-RPC on stdio and must be started by Neovim; see 'vilm host --help'")

type hostCommander struct {
	configDir string
	manifest  string
	debug     bool
	cfg       *config.Config
	cfger     *config.Configer
	logger    *slog.Logger

	// cmd is kept so reloads resolve flags and env the same way startup
	// did. explicit is set when --endpoint was given, which beats
	// OLLAMA_HOST.
	cmd      *cobra.Command
	explicit bool

	endpoint      string
	timeout       string
	model         string
	storageDriver string
	sqlitePath    string
	postgresDSN   string
}

var hostFlags = []string{
	config.FlagEndpoint,
	config.FlagTimeout,
	config.FlagModel,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
}

func NewHostCmd() *cobra.Command {
	cmder := &hostCommander{}

	cmd := &cobra.Command{
		Use:   "host",
		Short: hostShortDesc,
		Long:  hostLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			if cmder.manifest != "" {
				return cmder.writeManifest(cmd.OutOrStdout())
			}
			if cliui.IsTerminal(os.Stdin) {
				return ErrTerminal
			}
			return cmder.run()
		},
	}

	for _, key := range hostFlags {
		target := cmder.flagTarget(key)
		config.AddStringFlag(cmd, config.Flags, key, target)
	}
	cmd.Flags().StringVar(&cmder.manifest, "manifest", "", "Print the rplugin manifest for the named host and exit")

	return cmd
}

func (c *hostCommander) flagTarget(key string) *string {
	switch key {
	case config.FlagEndpoint:
		return &c.endpoint
	case config.FlagTimeout:
		return &c.timeout
	case config.FlagModel:
		return &c.model
	case config.FlagStorageDriver:
		return &c.storageDriver
	case config.FlagSQLite:
		return &c.sqlitePath
	default:
		return &c.postgresDSN
	}
}

// loadConfig resolves flag > env > config.toml > default into c.cfg.
func (c *hostCommander) loadConfig(cmd *cobra.Command) error {
	c.cmd = cmd
	c.configDir, _ = cmd.Flags().GetString("config-dir")
	c.explicit = cmd.Flags().Changed(config.Flags[config.FlagEndpoint].Name)

	var err error
	c.cfg, err = c.resolveConfig()
	if err != nil {
		return err
	}

	c.cfger, err = config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return nil
}

// resolveConfig reads config.toml afresh and layers env and flags over it.
func (c *hostCommander) resolveConfig() (*config.Config, error) {
	v, err := config.InitViper(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, c.cmd, config.Flags, hostFlags)
	return config.FromViper(v), nil
}

func (c *hostCommander) writeManifest(w io.Writer) error {
	manifest, err := rplugin.Manifest(c.manifest)
	if err != nil {
		return fmt.Errorf("building manifest: %w", err)
	}
	_, err = w.Write(manifest)
	return err
}

func (c *hostCommander) run() error {
	logFile, err := c.openLog()
	if err != nil {
		return err
	}
	defer logFile.Close()
	c.logger = newLogger(logFile, os.Stderr, c.debug, c.cfg.Log.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver, err := storageopener.Open(ctx, c.cfg.Storage, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	pool, err := transcript.NewPool(&transcript.Config{
		Driver: driver,
		Logger: c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating transcript pool: %w", err)
	}
	defer pool.Close()

	client, err := newClient(c.cfg, c.explicit)
	if err != nil {
		return err
	}

	// Stdout is the RPC channel; anything else printing to it would corrupt
	// the stream.
	stdout := os.Stdout
	os.Stdout = os.Stderr

	v, err := nvim.New(os.Stdin, stdout, stdout, func(format string, args ...any) {
		c.logger.Debug(fmt.Sprintf(format, args...))
	})
	if err != nil {
		return fmt.Errorf("connecting to neovim: %w", err)
	}
	ed := editor.NewNvim(v)

	session := uuid.NewString()
	ch, err := chat.New(&chat.Config{
		Editor:   ed,
		Client:   client,
		Model:    c.cfg.Chat.DefaultModel,
		Size:     sizeFromConfig(c.cfg),
		Recorder: pool,
		Store:    driver,
		Session:  session,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating chat: %w", err)
	}

	rplugin.NewHandlers(ctx, ch, ed, c.logger).Register(plugin.New(v))

	go c.watchConfig(ctx, ch)
	go func() {
		<-ctx.Done()
		_ = v.Close()
	}()

	c.logger.Info("plugin host started",
		"session", session,
		"endpoint", client.Endpoint(),
		"storage", c.cfg.Storage.Driver,
	)

	err = v.Serve()
	stop()
	ch.Wait()
	c.logger.Info("plugin host stopped")
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("serving neovim: %w", err)
	}
	return nil
}

func (c *hostCommander) openLog() (*os.File, error) {
	path, err := dotdir.NewManager().LogPath(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving log path: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// newLogger logs JSON to file, and pretty output to stderr when the
// --debug flag is given.
func newLogger(file, stderr io.Writer, debugFlag, debugConfig bool) *slog.Logger {
	fileLogger := logger.New(
		logger.WithFormat(logger.FormatJSON),
		logger.WithWriter(file),
		logger.WithDebug(debugFlag || debugConfig),
	)
	if !debugFlag {
		return fileLogger
	}
	return logger.Multi(fileLogger, logger.New(
		logger.WithFormat(logger.FormatPretty),
		logger.WithWriter(stderr),
		logger.WithDebug(true),
	))
}
