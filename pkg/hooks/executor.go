// Package hooks runs operator supplied tengo scripts after secrets change.
package hooks

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/glorpus-work/passd/pkg/errors"
	"github.com/glorpus-work/passd/pkg/store"
)

// Script variables available to every hook.
const (
	VarEvent      = "event"
	VarSecretPath = "secretPath"
	VarStoreDir   = "storeDir"
	// VarErr may be set by a script to report a failure.
	VarErr = "err"
)

// TengoExecutor runs one tengo script per store event.
type TengoExecutor struct {
	scripts map[string]string
	mutex   sync.RWMutex
}

var _ store.HookRunner = (*TengoExecutor)(nil)

// NewTengoExecutor creates an executor without scripts.
func NewTengoExecutor() *TengoExecutor {
	return &TengoExecutor{
		scripts: make(map[string]string),
	}
}

// Run executes the script registered for event.Name. Events without a
// script are ignored.
func (e *TengoExecutor) Run(ctx context.Context, event store.HookEvent) error {
	e.mutex.RLock()
	script, exists := e.scripts[event.Name]
	e.mutex.RUnlock()
	if !exists {
		return nil
	}

	scriptInstance := tengo.NewScript([]byte(script))
	scriptInstance.SetImports(stdlib.GetModuleMap("fmt", "os", "strings", "text", "times"))

	vars := map[string]string{
		VarEvent:      event.Name,
		VarSecretPath: event.SecretPath,
		VarStoreDir:   event.StoreDir,
	}
	for name, value := range vars {
		if err := scriptInstance.Add(name, value); err != nil {
			return fmt.Errorf("failed to add %s to script: %w", name, err)
		}
	}
	// declared so scripts can assign it without defining it
	if err := scriptInstance.Add(VarErr, ""); err != nil {
		return fmt.Errorf("failed to add %s to script: %w", VarErr, err)
	}

	compiled, err := scriptInstance.RunContext(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", event.Name, errors.ErrHookExecution, err)
	}

	return scriptError(compiled.Get(VarErr))
}

// scriptError converts the script's err variable into a Go error.
func scriptError(v *tengo.Variable) error {
	if v == nil {
		return nil
	}
	switch obj := v.Object().(type) {
	case *tengo.Error:
		msg, _ := tengo.ToString(obj.Value)
		return fmt.Errorf("%w: %s", errors.ErrHookScript, msg)
	case *tengo.String:
		if obj.Value != "" {
			return fmt.Errorf("%w: %s", errors.ErrHookScript, obj.Value)
		}
	}
	return nil
}

// AddScript adds or updates the script for event.
func (e *TengoExecutor) AddScript(event, script string) error {
	if !IsKnownEvent(event) {
		return errors.ErrUnknownHookEventWithName(event)
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.scripts[event] = script
	return nil
}

// HasScript checks if a script exists for event.
func (e *TengoExecutor) HasScript(event string) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	_, exists := e.scripts[event]
	return exists
}

// Events lists the events the store raises, in the order they are documented.
func Events() []string {
	return []string{store.EventPostWrite, store.EventPostDelete}
}

// IsKnownEvent reports whether the store raises event.
func IsKnownEvent(event string) bool {
	return slices.Contains(Events(), event)
}
