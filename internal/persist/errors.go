package persist

import (
	"errors"
	"fmt"
)

// WriteError reports a snapshot that could not be written.
//
// The cart store logs and drops it; in-memory state stays authoritative.
type WriteError struct {
	Key     string
	Version int64
	Err     error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("persist snapshot v%d to %q: %v", e.Version, e.Key, e.Err)
}

// Unwrap returns the underlying cause.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsWriteError returns true if err is (or wraps) a WriteError.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}
