package errors

import (
	goerrors "errors"

	"github.com/godbus/dbus/v5"
)

// D-Bus error names produced by the taxonomy.
const (
	NameNoSuchObject = "org.freedesktop.Secret.Error.NoSuchObject"
	NameNoSession    = "org.freedesktop.Secret.Error.NoSession"
	NameIOError      = "org.freedesktop.DBus.Error.IOError"
	NameFailed       = "org.freedesktop.DBus.Error.Failed"
	NameAccessDenied = "org.freedesktop.DBus.Error.AccessDenied"

	// ErrorNamespace prefixes the implementation-specific names.
	ErrorNamespace     = "io.github.glorpuswork.Passd.Error"
	NameIndexError     = ErrorNamespace + ".IndexError"
	NameGPGError       = ErrorNamespace + ".GPGError"
	NameNotInitialized = ErrorNamespace + ".NotInitialized"
)

const (
	notInitializedText = "Pass is not initialized"
	accessDeniedText   = "Access denied"
)

// Name returns the D-Bus error name for e.
func (e *Error) Name() string {
	switch e.Kind {
	case KindIO:
		if e.IsNotFound() {
			return NameNoSuchObject
		}
		return NameIOError
	case KindTransport:
		return NameFailed
	case KindIndex:
		return NameIndexError
	case KindTool:
		return NameGPGError
	case KindNotInitialized:
		return NameNotInitialized
	case KindInvalidSession:
		return NameNoSession
	case KindPermissionDenied:
		return NameAccessDenied
	default:
		return NameFailed
	}
}

// Description returns the human-readable text sent alongside the error name.
// The second result is false when the variant carries no description.
func (e *Error) Description() (string, bool) {
	switch e.Kind {
	case KindIO, KindIndex, KindInvalidSession:
		return "", false
	case KindTransport:
		return transportDescription(e.Err)
	case KindTool:
		return e.Msg, true
	case KindNotInitialized:
		return notInitializedText, true
	case KindPermissionDenied:
		return accessDeniedText, true
	default:
		return "", false
	}
}

// DBusError converts e into the error value returned from a D-Bus method.
func (e *Error) DBusError() *dbus.Error {
	var body []interface{}
	if desc, ok := e.Description(); ok {
		body = []interface{}{desc}
	}
	return dbus.NewError(e.Name(), body)
}

// ToDBus classifies err and converts it into a D-Bus method error.
func ToDBus(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if !goerrors.As(From(err), &classified) {
		return dbus.NewError(NameFailed, []interface{}{err.Error()})
	}
	return classified.DBusError()
}

// transportDescription extracts the description of a remote method error.
func transportDescription(err error) (string, bool) {
	var body []interface{}
	var value dbus.Error
	var ptr *dbus.Error
	switch {
	case goerrors.As(err, &value):
		body = value.Body
	case goerrors.As(err, &ptr) && ptr != nil:
		body = ptr.Body
	default:
		return "", false
	}
	if len(body) == 0 {
		return "", false
	}
	desc, ok := body[0].(string)
	return desc, ok
}
