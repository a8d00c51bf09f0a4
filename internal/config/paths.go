package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// LocalDir is the per-project configuration and data directory.
const LocalDir = ".prdwing"

// DBFile is the SQLite database file inside the data directory.
const DBFile = "prdwing.db"

// GetGlobalConfigDir returns the path to the global configuration directory (~/.prdwing).
// It's a variable to allow overriding in tests.
var GetGlobalConfigDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, LocalDir), nil
}

// DataDir returns the directory holding the database, crash logs and the
// telemetry id.
// Resolution order (first match wins):
// 1. Explicit config via "data.path" (Viper/env/flag)
// 2. Local project directory: .prdwing (if exists)
// 3. XDG_DATA_HOME/prdwing (if XDG_DATA_HOME is set)
// 4. Global fallback: ~/.prdwing
func DataDir() string {
	if path := viper.GetString("data.path"); path != "" {
		return path
	}

	if info, err := os.Stat(LocalDir); err == nil && info.IsDir() {
		return LocalDir
	}

	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "prdwing")
	}

	dir, err := GetGlobalConfigDir()
	if err != nil {
		return LocalDir
	}
	return dir
}

// DBPath returns the SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), DBFile)
}
