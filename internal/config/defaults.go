package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// ConfigDir returns the platform-specific config directory.
//
// Platform paths:
//   - Linux:   $XDG_CONFIG_HOME/edgy/ or ~/.config/edgy/
//   - macOS:   ~/Library/Application Support/edgy/
func ConfigDir() string {
	if runtime.GOOS == "darwin" {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "edgy")
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "edgy")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "edgy")
}

// StateDir returns the directory for logs.
//
// Platform paths:
//   - Linux:   $XDG_STATE_HOME/edgy/ or ~/.local/state/edgy/
//   - macOS:   ~/Library/Logs/edgy/
func StateDir() string {
	if runtime.GOOS == "darwin" {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Logs", "edgy")
	}
	if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
		return filepath.Join(xdgState, "edgy")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "edgy")
}

// RuntimeDir returns the directory for the pid file of a detached daemon:
// $XDG_RUNTIME_DIR/edgy/ or /tmp/edgy-$UID/.
func RuntimeDir() string {
	if xdgRuntime := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntime != "" {
		return filepath.Join(xdgRuntime, "edgy")
	}
	return filepath.Join(os.TempDir(), "edgy-"+strconv.Itoa(os.Getuid()))
}

// SupportedConfigFormats returns the list of supported config file formats.
func SupportedConfigFormats() []string {
	return []string{
		"toml",
		"yaml",
		"yml",
		"json",
	}
}

// FindConfigFile searches for a config file in the current directory and
// then the config directory. Returns "" if none is found.
func FindConfigFile() string {
	for _, dir := range []string{".", ConfigDir()} {
		for _, ext := range SupportedConfigFormats() {
			path := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
