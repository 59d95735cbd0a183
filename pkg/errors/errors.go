package errors

import "fmt"

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrNoStoreDir        = fmt.Errorf("password store directory cannot be determined")
	ErrInvalidLogLevel   = fmt.Errorf("invalid log level")
	ErrUnknownHookEvent  = fmt.Errorf("unknown hook event")

	// Index errors.
	ErrTableNotExist    = fmt.Errorf("table does not exist")
	ErrInvalidTableName = fmt.Errorf("invalid table name")

	// Backup errors.
	ErrArchiveEntryEscapes = fmt.Errorf("archive entry escapes destination")

	// Hook errors.
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrInvalidLogLevelWithDetails is a helper to create a wrapped error with the invalid level and valid options.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: debug, info, warn, error", ErrInvalidLogLevel, level)
}

// ErrUnknownHookEventWithName is a helper to create a wrapped error with the offending event name.
func ErrUnknownHookEventWithName(event string) error {
	return fmt.Errorf("%w: %s", ErrUnknownHookEvent, event)
}
