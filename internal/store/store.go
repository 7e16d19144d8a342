// Package store implements the propagation channel between module build
// steps: a session-scoped, write-once/read-many key-value store holding
// each finished module's published build configuration.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrNotFound reports that no configuration has been published under
	// the requested module name.
	ErrNotFound = errors.New("module configuration not published")

	// ErrAlreadyPublished reports a second publish for the same module name.
	ErrAlreadyPublished = errors.New("module configuration already published")
)

// Store is a file-backed key-value store under <session>/modules.
// One file per module; files are created exclusively, so a publish becomes
// visible to sibling build-step processes exactly once and is never
// overwritten.
type Store struct {
	dir string
}

// Open returns a store rooted at sessionDir, creating the backing
// directory if needed.
func Open(sessionDir string) (*Store, error) {
	dir := filepath.Join(sessionDir, "modules")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to open module store: %w", err)
	}
	return &Store{dir: dir}, nil
}

// keyPath maps a module name to its backing file. The name is localized so
// it cannot escape the store directory.
func (s *Store) keyPath(name string) (string, error) {
	localized, err := filepath.Localize(name)
	if err != nil {
		return "", fmt.Errorf("failed to derive store key for %q: %w", name, err)
	}
	return filepath.Join(s.dir, localized+".json"), nil
}

// Publish stores payload under name. A module publishes exactly once,
// after its compilation succeeded; a second publish fails with
// ErrAlreadyPublished.
//
// The payload is written to a temp file and linked into place, so a
// failed write never leaves a partial payload under the key and the key
// stays free for a retry.
func (s *Store) Publish(name string, payload []byte) error {
	path, err := s.keyPath(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".publish-*")
	if err != nil {
		return fmt.Errorf("failed to publish %q: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to publish %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to publish %q: %w", name, err)
	}
	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("failed to publish %q: %w", name, ErrAlreadyPublished)
		}
		return fmt.Errorf("failed to publish %q: %w", name, err)
	}
	return nil
}

// Lookup returns the payload published under name, or ErrNotFound if no
// build step has published a configuration for it.
func (s *Store) Lookup(name string) ([]byte, error) {
	path, err := s.keyPath(name)
	if err != nil {
		return nil, err
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to look up %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up %q: %w", name, err)
	}
	return payload, nil
}
