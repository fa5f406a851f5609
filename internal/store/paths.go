package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DBFile is the run history database file name inside the data directory.
const DBFile = "mycelium.db"

// GlobalDataPath returns the path to the global .mycelium directory.
// On Unix: ~/.mycelium
// On Windows: %USERPROFILE%\.mycelium
func GlobalDataPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".mycelium"), nil
}

// ResolveDataDir returns dir if set, otherwise the global data directory.
func ResolveDataDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return GlobalDataPath()
}

// EnsureDataDir creates dir if it doesn't exist.
// Returns nil if the directory already exists or was successfully created.
func EnsureDataDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}
