package hooks

import (
	"os"

	"github.com/glorpus-work/passd/pkg/errors"
)

// LoadScripts builds an executor from a map of event name to script path.
func LoadScripts(paths map[string]string) (*TengoExecutor, error) {
	executor := NewTengoExecutor()
	for event, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading hook file %s", path)
		}
		if err := executor.AddScript(event, string(content)); err != nil {
			return nil, err
		}
	}
	return executor, nil
}

// HookTemplate generates a starting point for a hook script.
func HookTemplate(event string) string {
	switch event {
	case "post-write":
		return `// Post-write hook
// Runs after a secret was encrypted and written.
// Available variables:
// - event: string - the event name
// - secretPath: string - absolute path of the encrypted file
// - storeDir: string - root of the password store
//
// Set err to report a failure; it is logged and never undoes the write.

fmt := import("fmt")
fmt.println("stored ", secretPath)
`
	case "post-delete":
		return `// Post-delete hook
// Runs after a secret file was removed.
// Available variables: same as the post-write hook.

fmt := import("fmt")
fmt.println("removed ", secretPath)
`
	default:
		return ""
	}
}
