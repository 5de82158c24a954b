package fileaccess

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotExist     = errors.New("file does not exist")
	ErrExist        = errors.New("file already exists")
	ErrPermission   = errors.New("permission denied")
	ErrClosed       = errors.New("file already closed")
	ErrNotDir       = errors.New("not a directory")
	ErrIsDir        = errors.New("is a directory")
	ErrNotEmpty     = errors.New("directory not empty")
	ErrNotSupported = errors.New("operation not supported")
	ErrNotAllowed   = errors.New("operation not allowed")
)

// Error classes seen by the storage engine. Namespace and handle
// resolution failures match ErrResolution. Errors returned by the FileAccess
// stream operations match ErrIO, wrapping the cause, which may itself be a
// resolution error.
var (
	// ErrResolution means a path could not be turned into a handle: the
	// namespace is unavailable or the provider rejected the path.
	ErrResolution = errors.New("cannot resolve path")

	// ErrIO means a stream or durable-storage operation failed.
	ErrIO = errors.New("i/o error")

	// ErrManagerUnavailable is wrapped by resolution errors when the
	// namespace bind failed.
	ErrManagerUnavailable = errors.New("file system manager unavailable")

	// ErrNamespaceClosed is wrapped by resolution errors after Teardown.
	ErrNamespaceClosed = errors.New("namespace torn down")
)

// PathError records an error and the operation and file path that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// resolutionError classifies err as a resolution failure.
func resolutionError(op, path string, err error) error {
	if errors.Is(err, ErrResolution) {
		return err
	}
	return &PathError{Op: op, Path: path, Err: fmt.Errorf("%w: %w", ErrResolution, err)}
}

// ioError classifies err as an I/O failure, keeping any resolution cause
// reachable through errors.Is.
func ioError(op, path string, err error) error {
	if errors.Is(err, ErrIO) {
		return err
	}
	return &PathError{Op: op, Path: path, Err: fmt.Errorf("%w: %w", ErrIO, err)}
}

// IsNotExist reports whether an error indicates that a file or directory
// does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsExist reports whether an error indicates that a file or directory
// already exists
func IsExist(err error) bool {
	return errors.Is(err, ErrExist)
}

// IsPermission reports whether an error indicates that permission is denied
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}

// IsResolution reports whether err is a path resolution failure.
func IsResolution(err error) bool {
	return errors.Is(err, ErrResolution)
}

// IsIO reports whether err is an I/O failure.
func IsIO(err error) bool {
	return errors.Is(err, ErrIO)
}
