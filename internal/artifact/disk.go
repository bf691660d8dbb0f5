// Package artifact stores assembled tables for download.
//
// Keys are slash-separated ("run_xxx/synthetic_orders.csv"). Writing a key
// that already exists replaces it; the last writer wins.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/tablegen/internal/core"
)

// ErrNotFound is returned by Open for an unknown key.
var ErrNotFound = core.ErrArtifactNotFound

// DiskStore keeps artifacts under a local directory.
type DiskStore struct {
	root string
}

// NewDiskStore creates root if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, errors.New("disk store: root directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("disk store: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("disk store: create root: %w", err)
	}
	return &DiskStore{root: abs}, nil
}

// Root returns the absolute store directory.
func (d *DiskStore) Root() string {
	return d.root
}

// Put writes r to key through a temporary file and renames it into place,
// so readers never see a partial artifact.
func (d *DiskStore) Put(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	path, err := d.path(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("disk store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return "", fmt.Errorf("disk store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("disk store: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("disk store: write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("disk store: %w", err)
	}
	return path, nil
}

// Open returns the artifact stored under key.
func (d *DiskStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("disk store: %w", err)
	}
	return f, nil
}

// path maps key to a file below root, rejecting keys that escape it.
func (d *DiskStore) path(key string) (string, error) {
	if key == "" || strings.Contains(key, `\`) {
		return "", fmt.Errorf("disk store: invalid key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("disk store: invalid key %q", key)
		}
	}
	return filepath.Join(d.root, filepath.FromSlash(key)), nil
}

var _ core.ArtifactStore = (*DiskStore)(nil)
