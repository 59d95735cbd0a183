package config

import (
	"fmt"
	"sort"
	"strings"
)

// SetValue sets a configuration value by key
// Supported keys:
//   - store_dir: string - Password store root
//   - gpg_binary: string - Encryption tool to run
//   - gpg_opts: string - Extra tool arguments
//   - umask: string - Octal umask for created files and directories
//   - index_path: string - Index database path
//   - log_level: string - Logging level (debug, info, warn, error)
//   - hooks.<event>: string - Hook script for an event
func (c *Config) SetValue(key, value string) error {
	switch key {
	case "store_dir":
		c.StoreDir = value
	case "gpg_binary":
		c.GPGBinary = value
	case "gpg_opts":
		c.GPGOpts = value
	case "umask":
		c.Umask = value
	case "index_path":
		c.IndexPath = value
	case "log_level":
		if err := validateLogLevel(value); err != nil {
			return err
		}
		c.LogLevel = value
	default:
		event, ok := strings.CutPrefix(key, "hooks.")
		if !ok {
			return fmt.Errorf("unknown configuration key: %s", key)
		}
		if c.Hooks == nil {
			c.Hooks = make(map[string]string)
		}
		c.Hooks[event] = value
		if err := c.Validate(); err != nil {
			delete(c.Hooks, event)
			return err
		}
	}
	return nil
}

// GetValue returns the value for key as a string.
func (c *Config) GetValue(key string) (string, error) {
	switch key {
	case "store_dir":
		return c.StoreDir, nil
	case "gpg_binary":
		return c.GPGBinary, nil
	case "gpg_opts":
		return c.GPGOpts, nil
	case "umask":
		return c.Umask, nil
	case "index_path":
		return c.IndexPath, nil
	case "log_level":
		return c.LogLevel, nil
	default:
		if event, ok := strings.CutPrefix(key, "hooks."); ok {
			return c.Hooks[event], nil
		}
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// Keys returns every key accepted by GetValue in display order.
func (c *Config) Keys() []string {
	keys := []string{"store_dir", "gpg_binary", "gpg_opts", "umask", "index_path", "log_level"}
	events := make([]string, 0, len(c.Hooks))
	for event := range c.Hooks {
		events = append(events, "hooks."+event)
	}
	sort.Strings(events)
	return append(keys, events...)
}
