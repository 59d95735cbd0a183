package fsutil

import (
	"errors"
	"io/fs"
	"os"
)

// OpenFile opens name with flag, creating it with exactly mode when it does
// not exist yet. Existing files keep their permissions.
func OpenFile(name string, flag int, mode os.FileMode) (*os.File, error) {
	file, err := os.OpenFile(name, flag|os.O_CREATE|os.O_EXCL, mode)
	if err == nil {
		if err := file.Chmod(mode); err != nil {
			_ = file.Close()
			return nil, err
		}
		return file, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return nil, err
	}
	return os.OpenFile(name, flag&^(os.O_CREATE|os.O_EXCL), mode)
}

// WriteFile replaces the contents of name with data, creating it with mode
// when absent.
func WriteFile(name string, data []byte, mode os.FileMode) error {
	file, err := OpenFile(name, os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
