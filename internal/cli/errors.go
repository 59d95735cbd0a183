package cli

import (
	"fmt"

	perrors "github.com/glorpus-work/passd/pkg/errors"
)

// FormatError renders err together with the D-Bus error it maps to.
func FormatError(err error) string {
	dbusErr := perrors.ToDBus(err)
	if dbusErr == nil {
		return ""
	}
	if len(dbusErr.Body) > 0 {
		if desc, ok := dbusErr.Body[0].(string); ok && desc != err.Error() {
			return fmt.Sprintf("Error: %v\n  %s: %s", err, dbusErr.Name, desc)
		}
	}
	return fmt.Sprintf("Error: %v\n  %s", err, dbusErr.Name)
}
