// Package workdir provides scratch directories that are removed as a unit.
package workdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Dir is a scratch directory owned by a single caller. Close removes it and
// everything beneath it; Close is idempotent.
type Dir struct {
	path string
	once sync.Once
	err  error
}

// New creates a fresh directory under parent (os.TempDir when empty).
func New(parent, prefix string) (*Dir, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir parent: %w", err)
	}
	path, err := os.MkdirTemp(parent, prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("mkdir temp: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the absolute directory path.
func (d *Dir) Path() string {
	return d.path
}

// Join resolves name inside the directory and rejects escapes.
func (d *Dir) Join(name string) (string, error) {
	clean := filepath.Clean(name)
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.New("invalid work dir entry")
	}
	return filepath.Join(d.path, clean), nil
}

// WriteFile writes data to name inside the directory.
func (d *Dir) WriteFile(name string, data []byte) (string, error) {
	full, err := d.Join(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return full, nil
}

// Close removes the directory tree.
func (d *Dir) Close() error {
	d.once.Do(func() {
		d.err = os.RemoveAll(d.path)
	})
	return d.err
}
