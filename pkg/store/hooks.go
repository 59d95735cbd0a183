//go:generate mockgen -destination=./mocks/hooks.go . HookRunner
package store

import "context"

// Hook events raised after a secret changes on disk.
const (
	EventPostWrite  = "post-write"
	EventPostDelete = "post-delete"
)

// HookEvent describes a completed change to a secret.
type HookEvent struct {
	Name string
	// SecretPath is the absolute path of the encrypted file.
	SecretPath string
	StoreDir   string
}

// HookRunner runs operator hooks for store events.
type HookRunner interface {
	Run(ctx context.Context, event HookEvent) error
}
