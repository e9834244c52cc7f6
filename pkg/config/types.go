package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent vilm configuration stored as config.toml
// in the .vilm/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Ollama  OllamaConfig  `toml:"ollama"`
	Chat    ChatConfig    `toml:"chat"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
}

// OllamaConfig holds the inference service connection settings.
type OllamaConfig struct {
	// Endpoint is the base URL of the Ollama REST API (scheme + host + port).
	Endpoint string `toml:"endpoint,omitempty"`

	// Timeout bounds dialing and waiting for response headers, as a Go
	// duration string (e.g. "30s"). It does not bound a streamed reply.
	Timeout string `toml:"timeout,omitempty"`
}

// ChatConfig holds chat window and model settings.
type ChatConfig struct {
	DefaultModel string `toml:"default_model,omitempty"`
	Width        uint   `toml:"width,omitempty"`
	Height       uint   `toml:"height,omitempty"`
	InputHeight  uint   `toml:"input_height,omitempty"`
}

// StorageConfig selects where completed turns are persisted.
type StorageConfig struct {
	// Driver is one of "memory", "sqlite" or "postgres".
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// LogConfig holds plugin host logging settings.
type LogConfig struct {
	Debug bool `toml:"debug,omitempty"`
}

// TimeoutDuration parses Ollama.Timeout, falling back to the default when
// it is empty or malformed.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Ollama.Timeout)
	if err != nil || d <= 0 {
		return defaultTimeout
	}
	return d
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if n == 0 {
				return fmt.Errorf("invalid value for %s: must be greater than zero", name)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"ollama.endpoint": {
		get: func(c *Config) string { return c.Ollama.Endpoint },
		set: func(c *Config, v string) error { c.Ollama.Endpoint = v; return nil },
	},
	"ollama.timeout": {
		get: func(c *Config) string { return c.Ollama.Timeout },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid value for ollama.timeout: %w", err)
			}
			if d <= 0 {
				return fmt.Errorf("invalid value for ollama.timeout: must be positive")
			}
			c.Ollama.Timeout = v
			return nil
		},
	},
	"chat.default_model": {
		get: func(c *Config) string { return c.Chat.DefaultModel },
		set: func(c *Config, v string) error { c.Chat.DefaultModel = v; return nil },
	},
	"chat.width":        uintKey("chat.width", func(c *Config) *uint { return &c.Chat.Width }),
	"chat.height":       uintKey("chat.height", func(c *Config) *uint { return &c.Chat.Height }),
	"chat.input_height": uintKey("chat.input_height", func(c *Config) *uint { return &c.Chat.InputHeight }),
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error {
			switch v {
			case StorageMemory, StorageSQLite, StoragePostgres:
				c.Storage.Driver = v
				return nil
			default:
				return fmt.Errorf("invalid value for storage.driver: %q (available: memory, sqlite, postgres)", v)
			}
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"log.debug": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.Debug) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for log.debug: %w", err)
			}
			c.Log.Debug = b
			return nil
		},
	},
}
