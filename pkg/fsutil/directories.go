package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// EnsureDir creates a directory and all missing parents. Every level it
// creates gets exactly mode, independent of the process umask. Existing
// directories are left untouched.
// Returns an error if a path component exists but is not a directory.
func EnsureDir(path string, mode os.FileMode) error {
	var missing []string
	for dir := filepath.Clean(path); ; {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return &fs.PathError{Op: "mkdir", Path: dir, Err: syscall.ENOTDIR}
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		missing = append(missing, dir)

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	for i := len(missing) - 1; i >= 0; i-- {
		dir := missing[i]
		if err := os.Mkdir(dir, mode); err != nil {
			// Another writer created it first.
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			return err
		}
		if err := os.Chmod(dir, mode); err != nil {
			return err
		}
	}
	return nil
}

// EnsureFileDir creates the parent directory of a file path if it doesn't exist.
func EnsureFileDir(filePath string, mode os.FileMode) error {
	return EnsureDir(filepath.Dir(filePath), mode)
}
