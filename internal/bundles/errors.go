package bundles

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates an unknown or expired bundle handle.
	ErrNotFound = errors.New("bundle not found")

	errMissingDeps = errors.New("bundles: missing dependencies")
)

// StorageError reports a failure writing or reading bundle bytes or metadata.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("bundle storage %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("bundle storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
