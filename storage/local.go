package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// LocalEndpoint implements Endpoint against a local filesystem
// directory, writing through a temp-file-then-rename so a reader never
// observes a partially written blob.
type LocalEndpoint struct {
	root string
}

// NewLocalEndpoint returns an Endpoint rooted at dir. dir is created if
// it does not already exist.
func NewLocalEndpoint(dir string) (*LocalEndpoint, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root %q: %w", dir, err)
	}
	return &LocalEndpoint{root: dir}, nil
}

func (e *LocalEndpoint) path(key string) string {
	return filepath.Join(e.root, key)
}

func (e *LocalEndpoint) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(e.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (e *LocalEndpoint) Put(key string, data []byte) error {
	path := e.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("storage: create parent dir for %q: %w", key, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("storage: write temp file for %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: rename into place for %q: %w", key, err)
	}
	return nil
}

func (e *LocalEndpoint) TryGetSize(key string) (uint64, bool, error) {
	info, err := os.Stat(e.path(key))
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return uint64(info.Size()), true, nil
}

func (e *LocalEndpoint) Resolve(key string) string {
	return e.path(key)
}
