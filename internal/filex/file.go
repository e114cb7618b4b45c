// Package filex has the scratch-file helpers used by the transcoder.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates dir (and parents) when missing and returns its absolute
// path. An empty dir resolves to os.TempDir().
func EnsureDir(dir string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// WriteTemp stores data in a new file inside dir named after pattern
// (see os.CreateTemp) and returns its path. The caller removes it.
func WriteTemp(dir, pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	name := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("write temp %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("close temp %s: %w", name, err)
	}

	return name, nil
}

// ReserveTemp creates an empty file in dir and returns its path, for tools
// that insist on writing to a named output.
func ReserveTemp(dir, pattern string) (string, error) {
	return WriteTemp(dir, pattern, nil)
}

// Remove deletes path, treating "already gone" as success.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
