package common

import (
	"errors"
	"fmt"
)

// Error categories. Every failure returned by the streaming packages wraps
// exactly one of these.
var (
	ErrConnection = errors.New("connection error") // Source cannot be opened.
	ErrAuth       = errors.New("auth error")       // Missing or bad credentials.
	ErrRange      = errors.New("range error")      // Invalid range spec.
	ErrIO         = errors.New("io error")         // Sink creation or write.
	ErrFormat     = errors.New("format error")     // Malformed upstream data.
)

var kinds = []error{ErrConnection, ErrAuth, ErrRange, ErrIO, ErrFormat}

// ConnectionError returns an error wrapping ErrConnection and err.
func ConnectionError(err error, format string, a ...any) error {
	return wrap(ErrConnection, err, format, a...)
}

// AuthError returns an error wrapping ErrAuth and err.
func AuthError(err error, format string, a ...any) error {
	return wrap(ErrAuth, err, format, a...)
}

// RangeError returns an error wrapping ErrRange.
func RangeError(format string, a ...any) error {
	return wrap(ErrRange, nil, format, a...)
}

// IOError returns an error wrapping ErrIO and err.
func IOError(err error, format string, a ...any) error {
	return wrap(ErrIO, err, format, a...)
}

// FormatError returns an error wrapping ErrFormat and err.
func FormatError(err error, format string, a ...any) error {
	return wrap(ErrFormat, err, format, a...)
}

// Errors that already carry a category keep it.
func wrap(kind, err error, format string, a ...any) error {
	msg := fmt.Sprintf(format, a...)
	if err == nil {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	if Kind(err) != "" {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, err)
}

// Kind returns the category name of err, or an empty string if err is not
// categorized.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return ""
}
