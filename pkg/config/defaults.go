package config

import "time"

// Storage driver names accepted by storage.driver.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

const (
	defaultEndpoint      = "http://localhost:11434"
	defaultTimeoutStr    = "30s"
	defaultTimeout       = 30 * time.Second
	defaultModel         = "llama3.2:3b"
	defaultChatWidth     = 80
	defaultChatHeight    = 20
	defaultInputHeight   = 5
	defaultStorageDriver = StorageMemory
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Ollama: OllamaConfig{
			Endpoint: defaultEndpoint,
			Timeout:  defaultTimeoutStr,
		},
		Chat: ChatConfig{
			DefaultModel: defaultModel,
			Width:        defaultChatWidth,
			Height:       defaultChatHeight,
			InputHeight:  defaultInputHeight,
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
	}
}
