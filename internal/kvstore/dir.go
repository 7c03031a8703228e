package kvstore

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Dir stores each key as its own JSON file inside a directory.
type Dir struct {
	root string
}

// NewDir opens (creating if needed) a directory-backed store.
func NewDir(root string) (*Dir, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key is required")
	}
	return filepath.Join(d.root, url.PathEscape(key)+".json"), nil
}

func (d *Dir) Get(key string) ([]byte, bool, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return data, true, nil
}

func (d *Dir) Set(key string, value []byte) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (d *Dir) Delete(key string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (d *Dir) Close() error { return nil }
