// Package errors defines the error taxonomy shared by the password store and
// its collaborators.
//
// Every fallible store operation returns either nil or an *Error whose Kind
// is one of a closed set. The protocol front-end translates an *Error into a
// D-Bus error name and optional description with Name, Description and
// DBusError. Call sites fold foreign errors into the taxonomy with From.
package errors

import (
	goerrors "errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/godbus/dbus/v5"
)

// Kind identifies the variant of an *Error.
type Kind int

// Error kinds. Adding a kind requires a matching case in Name and Description.
const (
	KindIO Kind = iota + 1
	KindIndex
	KindTransport
	KindTool
	KindNotInitialized
	KindInvalidSession
	KindPermissionDenied
)

var kindNames = map[Kind]string{
	KindIO:               "io",
	KindIndex:            "index",
	KindTransport:        "transport",
	KindTool:             "tool",
	KindNotInitialized:   "not-initialized",
	KindInvalidSession:   "invalid-session",
	KindPermissionDenied: "permission-denied",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the unified error value returned by store operations.
type Error struct {
	Kind Kind
	// Err is the underlying cause for KindIO, KindIndex and KindTransport.
	Err error
	// Msg is the tool diagnostic for KindTool.
	Msg string
}

// Sentinels for the variants that carry no payload. Match with errors.Is.
var (
	ErrNotInitialized   = &Error{Kind: KindNotInitialized}
	ErrInvalidSession   = &Error{Kind: KindInvalidSession}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}

	// ErrNotFound is the I/O not-found error used for absent values.
	ErrNotFound = &Error{Kind: KindIO, Err: fs.ErrNotExist}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindIO:
		return fmt.Sprintf("I/O Error: %v", e.Err)
	case KindIndex:
		return fmt.Sprintf("Index Error: %v", e.Err)
	case KindTransport:
		return fmt.Sprintf("D-Bus Error: %v", e.Err)
	case KindTool:
		return fmt.Sprintf("GPG Error: %s", e.Msg)
	case KindNotInitialized:
		return notInitializedText
	case KindInvalidSession:
		return "Invalid secret service session"
	case KindPermissionDenied:
		return accessDeniedText
	default:
		return fmt.Sprintf("unknown error %s", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a payload-free *Error of the same kind, or
// ErrNotFound and e is an I/O not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == ErrNotFound {
		return e.IsNotFound()
	}
	return t.Err == nil && t.Msg == "" && t.Kind == e.Kind
}

// IsNotFound reports whether e is an I/O failure caused by a missing file.
func (e *Error) IsNotFound() bool {
	return e.Kind == KindIO && goerrors.Is(e.Err, fs.ErrNotExist)
}

// IO wraps an operating system failure.
func IO(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindIO, Err: err}
}

// Index wraps a persistent index failure.
func Index(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindIndex, Err: err}
}

// Transport wraps a D-Bus transport failure.
func Transport(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindTransport, Err: err}
}

// Tool builds an encryption tool failure from the tool's stderr. Invalid
// UTF-8 is replaced rather than rejected.
func Tool(stderr []byte) error {
	return &Error{Kind: KindTool, Msg: strings.ToValidUTF8(string(stderr), "\uFFFD")}
}

// From folds err into the taxonomy. Classified errors pass through unchanged,
// D-Bus errors become transport failures and everything else is an I/O failure.
func From(err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if goerrors.As(err, &classified) {
		return classified
	}
	if isDBusError(err) {
		return Transport(err)
	}
	return IO(err)
}

// KindOf returns the kind of err, or zero when err is not classified.
func KindOf(err error) Kind {
	var classified *Error
	if goerrors.As(err, &classified) {
		return classified.Kind
	}
	return 0
}

func isDBusError(err error) bool {
	var value dbus.Error
	if goerrors.As(err, &value) {
		return true
	}
	var ptr *dbus.Error
	return goerrors.As(err, &ptr)
}
