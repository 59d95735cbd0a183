// Package backup archives the encrypted password store as a gzipped tarball
// and restores it. Secrets stay encrypted inside the archive.
package backup

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mholt/archives"

	"github.com/glorpus-work/passd/pkg/errors"
	"github.com/glorpus-work/passd/pkg/fsutil"
)

// Manager creates and restores store archives.
type Manager struct{}

// NewManager creates a new Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// Create writes a tar.gz archive of storeDir to archivePath. The archive is
// readable by the owner only.
func (m *Manager) Create(ctx context.Context, storeDir, archivePath string) error {
	absolutePath, err := filepath.Abs(storeDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for store directory: %w", err)
	}

	archiveFiles, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		absolutePath + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to read files from disk: %w", err)
	}

	file, err := fsutil.OpenFile(archivePath, os.O_WRONLY|os.O_TRUNC, fsutil.FileModePrivate)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", archivePath, err)
	}
	defer func() { _ = file.Close() }()

	format := archives.CompressedArchive{
		Compression: archives.Gz{},
		Archival:    archives.Tar{},
	}
	if err := format.Archive(ctx, file, archiveFiles); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	return file.Sync()
}

// Restore extracts the archive at archivePath into destDir. Directories are
// created with dirMode and files with fileMode regardless of the modes
// recorded in the archive. Entries resolving outside destDir and symlinks
// are rejected.
func (m *Manager) Restore(ctx context.Context, archivePath, destDir string, dirMode, fileMode os.FileMode) error {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return fmt.Errorf("failed to open archive file: %w", err)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := fsutil.EnsureDir(destDir, dirMode); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == "." {
			return nil
		}
		return m.restoreEntry(fsys, path, destDir, d, dirMode, fileMode)
	})
}

func (m *Manager) restoreEntry(fsys fs.FS, path, destDir string, d fs.DirEntry, dirMode, fileMode os.FileMode) error {
	targetPath, err := fsutil.JoinContained(destDir, path)
	if err != nil {
		return errors.Wrapf(errors.ErrArchiveEntryEscapes, "%s", path)
	}

	if d.IsDir() {
		return fsutil.EnsureDir(targetPath, dirMode)
	}
	if d.Type()&fs.ModeSymlink != 0 {
		return errors.Wrapf(errors.ErrArchiveEntryEscapes, "symlink %s", path)
	}

	srcFile, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", path, err)
	}
	defer func() { _ = srcFile.Close() }()

	if err := fsutil.EnsureFileDir(targetPath, dirMode); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}
	dstFile, err := fsutil.OpenFile(targetPath, os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", targetPath, err)
	}
	if err := dstFile.Chmod(fileMode); err != nil {
		_ = dstFile.Close()
		return fmt.Errorf("failed to set mode of %s: %w", targetPath, err)
	}
	return copyAndClose(dstFile, srcFile, path)
}

// copyAndClose copies src into dst and closes dst. A failed close is
// reported since the file may not be complete on disk.
func copyAndClose(dst io.WriteCloser, src io.Reader, name string) error {
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to copy file %s: %w", name, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close restored file %s: %w", name, err)
	}
	return nil
}
