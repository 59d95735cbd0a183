package store

import (
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/glorpus-work/passd/pkg/fsutil"
)

// Options is the immutable configuration of a Store.
type Options struct {
	// Directory is the root of the password store.
	Directory string
	// GPGOpts are extra tool arguments placed before the operation arguments.
	GPGOpts []string
	DirMode  os.FileMode
	FileMode os.FileMode
}

// NewOptions builds Options for directory. gpgOpts is split on whitespace and
// the creation modes are derived from umask.
func NewOptions(directory, gpgOpts string, umask uint32) Options {
	modes := fsutil.ModesFromUmask(umask)
	return Options{
		Directory: directory,
		GPGOpts:   strings.Fields(gpgOpts),
		DirMode:   modes.Dir,
		FileMode:  modes.File,
	}
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the logger used for operation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHooks sets the runner notified after secrets change.
func WithHooks(hooks HookRunner) Option {
	return func(s *Store) {
		s.hooks = hooks
	}
}

// WithTracer sets the tracer used to record operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}
