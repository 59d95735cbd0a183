package errors

import goerrors "errors"

// OrNotFound turns an absent value into ErrNotFound.
//
//	v, ok := cache[key]
//	return errors.OrNotFound(v, ok)
func OrNotFound[T any](value T, ok bool) (T, error) {
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return value, nil
}

// RaiseMissingTable maps a missing index table to ErrNotFound. Any other
// failure is classified as an index error.
func RaiseMissingTable(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.Is(err, ErrTableNotExist) {
		return ErrNotFound
	}
	return asIndex(err)
}

// RaiseMissingTableOr returns def with a nil error when err reports a missing
// index table, so a freshly created index reads as empty.
func RaiseMissingTableOr[T any](err error, def T) (T, error) {
	if goerrors.Is(err, ErrTableNotExist) {
		return def, nil
	}
	var zero T
	if err == nil {
		return zero, nil
	}
	return zero, asIndex(err)
}

func asIndex(err error) error {
	var classified *Error
	if goerrors.As(err, &classified) {
		return classified
	}
	return Index(err)
}
