// Package store implements the encrypted password store: secrets kept as
// individually encrypted files under a directory tree, encrypted for the
// recipient named by the nearest .gpg-id marker.
package store

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/glorpus-work/passd/internal/logger"
	"github.com/glorpus-work/passd/internal/tracing"
	perrors "github.com/glorpus-work/passd/pkg/errors"
	"github.com/glorpus-work/passd/pkg/fsutil"
	"github.com/glorpus-work/passd/pkg/gpg"
)

const tracerName = "github.com/glorpus-work/passd/pkg/store"

// Store reads and writes secrets under a single root directory.
// It is safe for concurrent use.
type Store struct {
	opts   Options
	runner gpg.Runner
	hooks  HookRunner
	logger *slog.Logger
	tracer trace.Tracer
	locks  *pathLocks
}

// Entry is an immediate child of a store directory.
type Entry struct {
	Name string
	Type fs.FileMode
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Type.IsDir()
}

// New creates a Store over opts.Directory that encrypts with runner.
func New(opts Options, runner gpg.Runner, options ...Option) *Store {
	s := &Store{
		opts:   opts,
		runner: runner,
		logger: logger.Component("store"),
		tracer: otel.Tracer(tracerName),
		locks:  newPathLocks(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Options returns the store configuration.
func (s *Store) Options() Options {
	return s.opts
}

// Read decrypts the secret at path. When canPrompt is false the tool is not
// allowed to ask for a passphrase.
func (s *Store) Read(ctx context.Context, path string, canPrompt bool) ([]byte, error) {
	ctx, span := s.startSpan(ctx, "Read", attribute.String("secret", path))
	defer span.End()

	file, err := s.SecretPath(path)
	if err != nil {
		return nil, s.fail(span, err)
	}
	ciphertext, err := os.ReadFile(file)
	if err != nil {
		return nil, s.fail(span, perrors.IO(err))
	}

	plaintext, err := s.runner.Run(ctx, gpg.DecryptArgs(s.opts.GPGOpts, canPrompt), ciphertext)
	if err != nil {
		return nil, s.fail(span, toolError(err))
	}
	s.logger.Debug("decrypted secret", "secret", path)
	return plaintext, nil
}

// Write encrypts value for the recipient of the secret's directory and
// replaces the secret's file. No file is touched when encryption fails.
func (s *Store) Write(ctx context.Context, path string, value []byte) error {
	ctx, span := s.startSpan(ctx, "Write", attribute.String("secret", path))
	defer span.End()

	file, err := s.SecretPath(path)
	if err != nil {
		return s.fail(span, err)
	}
	unlock := s.locks.lock(file)
	defer unlock()

	dir := filepath.Dir(file)
	if err := fsutil.EnsureDir(dir, s.opts.DirMode); err != nil {
		return s.fail(span, perrors.IO(err))
	}
	recipient, err := s.recipientFor(ctx, dir)
	if err != nil {
		return s.fail(span, err)
	}
	span.SetAttributes(attribute.String("recipient", recipient))

	ciphertext, err := s.runner.Run(ctx, gpg.EncryptArgs(s.opts.GPGOpts, recipient), value)
	if err != nil {
		return s.fail(span, toolError(err))
	}
	if err := fsutil.WriteFile(file, ciphertext, s.opts.FileMode); err != nil {
		return s.fail(span, perrors.IO(err))
	}

	s.logger.Debug("wrote secret", "secret", path, "recipient", recipient)
	s.runHook(ctx, EventPostWrite, file)
	return nil
}

// Delete removes the secret at path. A missing secret is not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	ctx, span := s.startSpan(ctx, "Delete", attribute.String("secret", path))
	defer span.End()

	file, err := s.SecretPath(path)
	if err != nil {
		return s.fail(span, err)
	}
	unlock := s.locks.lock(file)
	defer unlock()

	if err := os.Remove(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return s.fail(span, perrors.IO(err))
	}

	s.logger.Debug("deleted secret", "secret", path)
	s.runHook(ctx, EventPostDelete, file)
	return nil
}

// List returns the immediate children of dir, creating dir when missing.
// The order of the entries is unspecified.
func (s *Store) List(ctx context.Context, dir string) ([]Entry, error) {
	_, span := s.startSpan(ctx, "List", attribute.String("dir", dir))
	defer span.End()

	path, err := s.resolve(dir)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if err := fsutil.EnsureDir(path, s.opts.DirMode); err != nil {
		return nil, s.fail(span, perrors.IO(err))
	}

	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, s.fail(span, perrors.IO(err))
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, entry := range dirEntries {
		entries = append(entries, Entry{Name: entry.Name(), Type: entry.Type()})
	}
	return entries, nil
}

// OpenFile opens the plain file at path for reading and writing, creating
// it and its parents when missing. The caller closes the file.
func (s *Store) OpenFile(ctx context.Context, path string) (*os.File, error) {
	_, span := s.startSpan(ctx, "OpenFile", attribute.String("file", path))
	defer span.End()

	file, err := s.resolve(path)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if err := fsutil.EnsureFileDir(file, s.opts.DirMode); err != nil {
		return nil, s.fail(span, perrors.IO(err))
	}
	f, err := fsutil.OpenFile(file, os.O_RDWR, s.opts.FileMode)
	if err != nil {
		return nil, s.fail(span, perrors.IO(err))
	}
	return f, nil
}

// Stat returns metadata for the plain file at path. Missing parent
// directories are created first.
func (s *Store) Stat(ctx context.Context, path string) (fs.FileInfo, error) {
	_, span := s.startSpan(ctx, "Stat", attribute.String("file", path))
	defer span.End()

	file, err := s.resolve(path)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if err := fsutil.EnsureFileDir(file, s.opts.DirMode); err != nil {
		return nil, s.fail(span, perrors.IO(err))
	}
	info, err := os.Stat(file)
	if err != nil {
		return nil, s.fail(span, perrors.IO(err))
	}
	return info, nil
}

// MakeDir creates dir and all missing parents.
func (s *Store) MakeDir(ctx context.Context, dir string) error {
	_, span := s.startSpan(ctx, "MakeDir", attribute.String("dir", dir))
	defer span.End()

	path, err := s.resolve(dir)
	if err != nil {
		return s.fail(span, err)
	}
	if err := fsutil.EnsureDir(path, s.opts.DirMode); err != nil {
		return s.fail(span, perrors.IO(err))
	}
	return nil
}

// RemoveDir removes dir and everything below it. A missing directory is an
// I/O not-found error.
func (s *Store) RemoveDir(ctx context.Context, dir string) error {
	_, span := s.startSpan(ctx, "RemoveDir", attribute.String("dir", dir))
	defer span.End()

	path, err := s.resolve(dir)
	if err != nil {
		return s.fail(span, err)
	}
	if _, err := os.Lstat(path); err != nil {
		return s.fail(span, perrors.IO(err))
	}
	if err := os.RemoveAll(path); err != nil {
		return s.fail(span, perrors.IO(err))
	}
	s.logger.Debug("removed directory", "dir", dir)
	return nil
}

func (s *Store) runHook(ctx context.Context, name, file string) {
	if s.hooks == nil {
		return
	}
	event := HookEvent{Name: name, SecretPath: file, StoreDir: s.opts.Directory}
	if err := s.hooks.Run(ctx, event); err != nil {
		s.logger.Warn("hook failed", "event", name, "secret", file, "error", err)
	}
}

func (s *Store) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "store."+op, trace.WithAttributes(attrs...))
}

// fail records err on span and returns it.
func (s *Store) fail(span trace.Span, err error) error {
	tracing.RecordError(span, err)
	return err
}

// toolError classifies a runner failure. A nonzero exit carries the tool's
// diagnostics, anything else is a failure to run the tool at all.
func toolError(err error) error {
	var exitErr *gpg.ExitError
	if errors.As(err, &exitErr) {
		return perrors.Tool(exitErr.Stderr)
	}
	return perrors.From(err)
}
