package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	perrors "github.com/glorpus-work/passd/pkg/errors"
	"github.com/glorpus-work/passd/pkg/fsutil"
)

const (
	// SecretSuffix is appended to secret paths that lack it.
	SecretSuffix = ".gpg"
	// RecipientFile marks the recipient for the directory subtree holding it.
	RecipientFile = ".gpg-id"
)

// SecretPath returns the encrypted file backing the secret at rel. Paths that
// resolve outside the store root are rejected with ErrPermissionDenied.
func (s *Store) SecretPath(rel string) (string, error) {
	if !strings.HasSuffix(rel, SecretSuffix) {
		rel += SecretSuffix
	}
	return s.resolve(rel)
}

// resolve joins rel onto the store root.
func (s *Store) resolve(rel string) (string, error) {
	path, err := fsutil.JoinContained(s.opts.Directory, rel)
	if err != nil {
		return "", perrors.ErrPermissionDenied
	}
	return path, nil
}

// Recipient returns the recipient for secrets in the store directory rel.
func (s *Store) Recipient(ctx context.Context, rel string) (string, error) {
	ctx, span := s.startSpan(ctx, "Recipient", attribute.String("dir", rel))
	defer span.End()

	dir, err := s.resolve(rel)
	if err != nil {
		return "", s.fail(span, err)
	}
	recipient, err := s.recipientFor(ctx, dir)
	if err != nil {
		return "", s.fail(span, err)
	}
	return recipient, nil
}

// recipientFor walks from dir up to the store root and returns the trimmed
// content of the nearest marker. dir must lie inside the root.
func (s *Store) recipientFor(ctx context.Context, dir string) (string, error) {
	root := filepath.Clean(s.opts.Directory)
	for current := filepath.Clean(dir); ; {
		if err := ctx.Err(); err != nil {
			return "", perrors.IO(err)
		}

		data, err := os.ReadFile(filepath.Join(current, RecipientFile))
		switch {
		case err == nil:
			recipient := strings.TrimSpace(string(data))
			s.logger.Debug("resolved recipient", "dir", dir, "marker", current)
			return recipient, nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", perrors.IO(err)
		}

		parent := filepath.Dir(current)
		if current == root || parent == current {
			return "", perrors.ErrNotInitialized
		}
		current = parent
	}
}
