package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// LogDirectory returns the directory for s5bridge log files.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\s5bridge\logs
//   - Unix: ~/.config/s5bridge/logs
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "s5bridge-logs")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, "s5bridge", "logs")
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "s5bridge-logs")
		}
		return filepath.Join(homeDir, ".config", "s5bridge", "logs")
	}
	return filepath.Join(configDir, "s5bridge", "logs")
}

// DefaultLogFile is the rotating log file used when LOG_FILE is "default".
func DefaultLogFile() string {
	return filepath.Join(LogDirectory(), "s5bridge.log")
}

// EnsureLogDirectory creates the directory holding path with owner-only
// permissions.
func EnsureLogDirectory(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0700)
}
