// Package dotdir manages the .vilm/ and ~/.vilm directories.
//
// The directory holds config.toml, the plugin host log and, when the sqlite
// storage driver is selected, the transcript database.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the vilm directory.
	dirName = ".vilm"

	logFile    = "vilm.log"
	sqliteFile = "vilm.sqlite"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .vilm/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.vilm/ dir
//  3. Home ~/.vilm/ dir, created if missing
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating vilm directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// LogPath returns the plugin host log file inside the resolved directory.
func (m *Manager) LogPath(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, logFile), nil
}

// SQLitePath returns the default transcript database path inside the
// resolved directory.
func (m *Manager) SQLitePath(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sqliteFile), nil
}

// localDirExists checks whether a .vilm/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
