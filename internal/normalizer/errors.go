package normalizer

import (
	"errors"
	"fmt"
	"io/fs"
)

// PathNotFoundError is returned when the root or a walked entry does not exist.
type PathNotFoundError struct {
	Path  string
	Cause error
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("path not found: %s", e.Path)
}

func (e *PathNotFoundError) Unwrap() error {
	if e.Cause == nil {
		return fs.ErrNotExist
	}
	return e.Cause
}

func (e *PathNotFoundError) IOError() bool {
	return true
}

// PermissionDeniedError is returned when a path cannot be read or written
// because of its permissions.
type PermissionDeniedError struct {
	Op    string
	Path  string
	Cause error
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: cannot %s %s", e.Op, e.Path)
}

func (e *PermissionDeniedError) Unwrap() error {
	if e.Cause == nil {
		return fs.ErrPermission
	}
	return e.Cause
}

func (e *PermissionDeniedError) IOError() bool {
	return true
}

// NotDirectoryError is returned when the root exists but is not a directory.
type NotDirectoryError struct {
	Path string
}

func (e *NotDirectoryError) Error() string {
	return fmt.Sprintf("path is not a directory: %s", e.Path)
}

func (e *NotDirectoryError) IOError() bool {
	return true
}

// FileIOError wraps any other failure to stat, read, lock or write a file.
type FileIOError struct {
	Op    string
	Path  string
	Cause error
}

func (e *FileIOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *FileIOError) Unwrap() error {
	return e.Cause
}

func (e *FileIOError) IOError() bool {
	return true
}

// classify maps a raw filesystem error onto the package's error types.
func classify(op, path string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &PathNotFoundError{Path: path, Cause: err}
	case errors.Is(err, fs.ErrPermission):
		return &PermissionDeniedError{Op: op, Path: path, Cause: err}
	default:
		return &FileIOError{Op: op, Path: path, Cause: err}
	}
}
