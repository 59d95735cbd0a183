// Package fsutil provides permission handling and path helpers for the
// password store's filesystem layout.
package fsutil

import (
	"os"
	"strconv"
	"strings"
)

// Modes holds the permission bits applied to directories and files the
// store creates.
type Modes struct {
	Dir  os.FileMode
	File os.FileMode
}

// ModesFromUmask derives creation modes from a umask-style value.
// Files never receive execute bits.
func ModesFromUmask(umask uint32) Modes {
	return Modes{
		Dir:  os.FileMode(^umask & PermMask),
		File: os.FileMode(^(umask | ExecBits) & PermMask),
	}
}

// ParseUmask parses an octal umask such as "077" or "0o022". The boolean is
// false when value is empty or not valid octal.
func ParseUmask(value string) (uint32, bool) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "0o")
	if value == "" {
		return 0, false
	}
	umask, err := strconv.ParseUint(value, 8, 32)
	if err != nil {
		return 0, false
	}
	return uint32(umask), true
}
