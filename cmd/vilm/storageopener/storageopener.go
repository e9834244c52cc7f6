// Package storageopener builds the transcript storage driver selected by
// the storage section of the vilm config.
package storageopener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/vilm/pkg/config"
	"github.com/papercomputeco/vilm/pkg/dotdir"
	"github.com/papercomputeco/vilm/pkg/storage"
	"github.com/papercomputeco/vilm/pkg/storage/inmemory"
	"github.com/papercomputeco/vilm/pkg/storage/postgres"
	"github.com/papercomputeco/vilm/pkg/storage/sqlite"
)

// ErrNoPostgresDSN is returned when the postgres driver is selected without
// a connection string.
var ErrNoPostgresDSN = errors.New("storage.driver is postgres but storage.postgres_dsn is empty")

// ResolveSQLitePath returns the database path for the sqlite driver: the
// configured path with a leading ~ expanded, or vilm.sqlite in the
// resolved .vilm/ directory.
func ResolveSQLitePath(configured, configDir string) (string, error) {
	configured = strings.TrimSpace(configured)
	if configured == "" {
		return dotdir.NewManager().SQLitePath(configDir)
	}

	if configured == "~" || strings.HasPrefix(configured, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		configured = filepath.Join(home, strings.TrimPrefix(configured, "~"))
	}

	return configured, nil
}

// Open creates the driver named by c.Driver. An empty driver name selects
// in-memory storage.
func Open(ctx context.Context, c config.StorageConfig, configDir string, log *slog.Logger) (storage.Driver, error) {
	switch c.Driver {
	case "", config.StorageMemory:
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case config.StorageSQLite:
		path, err := ResolveSQLitePath(c.SQLitePath, configDir)
		if err != nil {
			return nil, err
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		log.Info("using SQLite storage", "path", path)
		return driver, nil

	case config.StoragePostgres:
		if c.PostgresDSN == "" {
			return nil, ErrNoPostgresDSN
		}
		driver, err := postgres.NewDriver(ctx, c.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL storer: %w", err)
		}
		log.Info("using PostgreSQL storage")
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q (available: memory, sqlite, postgres)", c.Driver)
	}
}
