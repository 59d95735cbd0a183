package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	// AppName is the name of the application used in paths
	AppName = "passd"

	// StoreDirName is the password store directory below the home directory.
	StoreDirName = ".password-store"
)

// ErrOutsideRoot is returned when a relative path resolves outside its root.
var ErrOutsideRoot = errors.New("path resolves outside the root directory")

// JoinContained joins rel onto root and verifies that the cleaned result is
// root itself or lies below it. Absolute rel values are treated as relative.
func JoinContained(root, rel string) (string, error) {
	root = filepath.Clean(root)
	joined := filepath.Join(root, rel)

	relToRoot, err := filepath.Rel(root, joined)
	if err != nil {
		return "", ErrOutsideRoot
	}
	if relToRoot == ".." || strings.HasPrefix(relToRoot, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return joined, nil
}

// GetConfigDir returns the platform-specific configuration directory for the application
// On Linux: ~/.config/passd/
// On macOS: ~/Library/Application Support/passd/
// On Windows: %AppData%\passd\
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}

// GetDataDir returns the platform-specific data directory for the application
// On Linux: $XDG_DATA_HOME/passd or ~/.local/share/passd/
// Elsewhere the configuration directory is used.
func GetDataDir() (string, error) {
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if filepath.Separator == '/' {
		return filepath.Join(home, ".local", "share", AppName), nil
	}
	return GetConfigDir()
}

// GetStoreDir returns the default password store directory, ~/.password-store.
func GetStoreDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, StoreDirName), nil
}
